package mcpserver

// NoteFormatContract describes how note content is stored and how
// attachments are referenced, for LLM consumers writing notes.
const NoteFormatContract = `# Quire Note Format

Every note is a single HTML fragment. There is no title field or frontmatter:
the first line of the content is what the owner sees first.

## Content

- Write plain HTML: ` + "`<p>`, `<b>`, `<i>`, `<ul>`, `<li>`, `<br>`, `<a href>`" + `.
- Scripts, event handlers and inline styles are stripped when the note is
  displayed, so do not rely on them.
- Saving always replaces the whole content and refreshes the note's time.

## Attachments

- Upload files with the ` + "`upload_attachment`" + ` tool. It returns the attachment URL
  and a ready-made anchor tag.
- A file belongs to a note only through an anchor in the content:
  ` + "`<a href=\"https://host/files/<name>\">report.pdf</a>`" + `.
  Removing the anchor and saving detaches it.
- Purging a note (or emptying the trash) deletes every attachment the note
  links to. Do not link the same upload from two notes.

## Lifecycle

- ` + "`trash_note`" + ` moves a note to the trash; ` + "`restore_note`" + ` brings it back.
- ` + "`purge_note`" + ` and ` + "`empty_trash`" + ` are permanent.
- Editing a trashed note keeps it in the trash.
`
