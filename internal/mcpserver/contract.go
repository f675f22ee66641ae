package mcpserver

// NoteFormat describes the Markdown note format produced by the capture
// pipeline, for LLM consumers reading or searching notes.
const NoteFormat = `# Envisage Note Format

Every note is a UTF-8 Markdown file written once by the capture pipeline.
Notes are never edited or deleted by the tools.

## File name

` + "`" + `{YYYYMMDDThhmmss_ffffffZ}__{stem}.md` + "`" + `

- The stamp is the creation time in UTC with microseconds. Stamps are unique
  and increase in creation order, so file names sort chronologically.
- The stem comes from the original image file name, or the capture prefix for
  clipboard images. It contains only letters, digits, ` + "`" + `-` + "`" + ` and ` + "`" + `_` + "`" + `.

## Structure

` + "```" + `markdown
---
created_utc: 2025-01-20T09:15:02.123+00:00
source: screenshot
orig_filename: Screenshot 2025-01-20 at 09.15.01.png
topics: general
version: v1
ocr_engine: tesseract
---

Text recognised in the image.
` + "```" + `

## Frontmatter

The block is delimited by ` + "`" + `---` + "`" + ` lines and holds one ` + "`" + `key: value` + "`" + ` per line,
always in this order:

| Key | Meaning |
|---|---|
| created_utc | ISO-8601 UTC time with millisecond precision |
| source | ` + "`" + `screenshot` + "`" + `, ` + "`" + `clipboard` + "`" + ` or ` + "`" + `upload` + "`" + ` |
| orig_filename | image file the note was made from |
| topics | comma separated topics, default ` + "`" + `general` + "`" + ` |
| version | note format version tag |
| ocr_engine | engine used for text extraction |

Older notes may carry ` + "`" + `timestamp_utc` + "`" + ` (compact stamp) instead of ` + "`" + `created_utc` + "`" + `.

## Body

- The extracted text, trimmed.
- ` + "`" + `(no text)` + "`" + ` when the image contained no recognisable text.
- A line starting with ` + "`" + `[OCR ERROR]` + "`" + ` followed by the reason when extraction
  failed. The note still exists; only its text is missing.

## Rendered pages

Each note is rendered to ` + "`" + `/notes/{stem}.html` + "`" + `, where {stem} is the note file
name without ` + "`" + `.md` + "`" + `. The index at ` + "`" + `/index.html` + "`" + ` lists all notes, newest first.
`
