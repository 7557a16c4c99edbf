package parser

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestExtractFiles_Basic(t *testing.T) {
	content := `<p>see <a href="/files/abc.png">abc.png</a> and <a class="x" href="https://n.example/files/d.pdf">d</a></p>`
	got := ExtractFiles(content)
	want := []string{"/files/abc.png", "https://n.example/files/d.pdf"}
	if !slices.Equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

func TestExtractFiles_DuplicatesKept(t *testing.T) {
	content := `<a href="/files/a.png">1</a><a href="/files/b.png">2</a><a href="/files/a.png">3</a>`
	got := ExtractFiles(content)
	want := []string{"/files/a.png", "/files/b.png", "/files/a.png"}
	if !slices.Equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

func TestExtractFiles_IgnoresOtherTags(t *testing.T) {
	content := `<img src="/files/x.png"><link href="/style.css"><a name="top">top</a><a href="">empty</a>`
	if got := ExtractFiles(content); len(got) != 0 {
		t.Errorf("files = %v, want none", got)
	}
}

func TestExtractFiles_HTMLSemantics(t *testing.T) {
	content := `<a href="/files/a.png?x=1&amp;y=2">a</a>` +
		`<!-- <a href="/files/commented.png">c</a> -->` +
		`<script>var s = '<a href="/files/script.png">';</script>` +
		`<textarea><a href="/files/raw.png">r</a></textarea>` +
		`<A HREF="/files/upper.png">u</A>`
	got := ExtractFiles(content)
	want := []string{"/files/a.png?x=1&y=2", "/files/upper.png"}
	if !slices.Equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

func TestExtractFiles_EmptyContent(t *testing.T) {
	got := ExtractFiles("")
	if got == nil || len(got) != 0 {
		t.Errorf("files = %#v, want empty non-nil slice", got)
	}
}

func TestExtractFiles_UppercaseTag(t *testing.T) {
	got := ExtractFiles(`<A HREF="/files/up.txt">up</A>`)
	if len(got) != 1 || got[0] != "/files/up.txt" {
		t.Errorf("files = %v", got)
	}
}

func TestAttachmentName(t *testing.T) {
	cases := map[string]string{
		"/files/abc.png":                     "abc.png",
		"https://n.example/files/d.pdf":      "d.pdf",
		"https://n.example/files/d.pdf?x=1":  "d.pdf",
		"https://n.example/files/e.txt#frag": "e.txt",
		"plain.md":                           "plain.md",
		"https://n.example/":                 "",
	}
	for in, want := range cases {
		if got := AttachmentName(in); got != want {
			t.Errorf("AttachmentName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractFiles_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOf(rapid.StringMatching(`[a-z0-9]{1,12}\.(png|pdf|txt)`)).Draw(t, "names")
		text := rapid.StringMatching(`[A-Za-z0-9 .,]{0,20}`)

		var b strings.Builder
		want := make([]string, 0, len(names))
		for i, n := range names {
			href := "/files/" + n
			want = append(want, href)
			fmt.Fprintf(&b, "%s<a href=%q>%s</a>", text.Draw(t, fmt.Sprintf("before%d", i)), href, n)
		}
		b.WriteString(text.Draw(t, "tail"))

		got := ExtractFiles(b.String())
		if !slices.Equal(got, want) {
			t.Fatalf("files = %v, want %v", got, want)
		}
		for i, href := range got {
			if AttachmentName(href) != names[i] {
				t.Fatalf("name = %q, want %q", AttachmentName(href), names[i])
			}
		}
	})
}
