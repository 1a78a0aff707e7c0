package mcpserver

// FileFormatContract describes the Markdown file format that LLM consumers
// should follow when writing file content.
const FileFormatContract = `# Atrium File Format

Files live inside a project at a relative path and carry a title. Content is
Markdown with optional YAML frontmatter.

## Structure

` + "```" + `markdown
---
tags:                               # OPTIONAL – YAML list, merged with file tags
  - tag-one
---

Body text in standard Markdown.

Use [[Title]] to reference another file of the same project by its title.
` + "```" + `

## Rules

1. **Titles identify link targets.** ` + "`" + `[[Plan]]` + "`" + ` points at the file titled
   ` + "`" + `Plan` + "`" + ` in the same project, wherever it lives in the tree.
2. **Only the exact form is rewritten on rename.** Moving with ` + "`" + `update_links` + "`" + `
   replaces ` + "`" + `[[Old]]` + "`" + ` with ` + "`" + `[[New]]` + "`" + `. A padded form such as
   ` + "`" + `[[ Old ]]` + "`" + ` still links but is left as written.
3. **Paths** use forward slashes, no leading slash, no ` + "`" + `.` + "`" + ` or ` + "`" + `..` + "`" + ` segments.
4. **A missing title** defaults to the file name without ` + "`" + `.md` + "`" + `.
5. **Unresolved links are fine.** They resolve as soon as a file with that title exists.
6. **Encoding** is UTF-8.

## Example

` + "```" + `markdown
---
tags:
  - planning
---

# Q3 roadmap

Builds on [[Plan]] and the [[Retro 2025-06]] notes.
` + "```" + `
`
