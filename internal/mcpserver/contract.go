package mcpserver

// CommandGrammar describes the command language accepted by submit_command.
const CommandGrammar = `# anxi Command Grammar

Each call to submit_command carries exactly one command line. The first word
is the command (case-insensitive); the rest is its argument.

## Commands

| Command | Effect |
|---|---|
| ` + "`list`" + ` | Show every task, numbered from 1. |
| ` + "`todo <description>`" + ` | Add a plain to-do. |
| ` + "`deadline <description> /by <date-time>`" + ` | Add a task due at a date and time. |
| ` + "`event <description> /from <date-time> /to <time>`" + ` | Add an event on one day. |
| ` + "`mark <n>`" + ` | Mark task n as done. |
| ` + "`unmark <n>`" + ` | Mark task n as not done. |
| ` + "`delete <n>`" + ` | Remove task n. Later tasks move up by one. |
| ` + "`find <term>`" + ` | Case-sensitive search in descriptions. |
| ` + "`bye`" + ` | End the session (no effect on the ledger). |

## Dates and times

- Date-time (` + "`/by`, `/from`" + `): ` + "`yyyy-MM-dd HHmm`" + `, ` + "`yyyy-MM-dd HH:mm`" + `,
  ` + "`d/M/yyyy HHmm`" + `, ` + "`d/M/yyyy HH:mm`" + `, ` + "`yyyy-MM-dd`" + ` or ` + "`d/M/yyyy`" + `.
  A date without a time means the start of that day.
- Time (` + "`/to`" + `): ` + "`HHmm`" + ` or ` + "`HH:mm`" + `. It must not be earlier than the
  start time of the event.

## Rules

1. Task numbers are 1-based and refer to the current ` + "`list`" + ` order.
   ` + "`find`" + ` results keep their list numbers, so they can be passed to ` + "`mark`" + ` or ` + "`delete`" + `.
2. Descriptions must not be empty and must not contain ` + "`|`" + `.
3. Every change is saved before it is reported. If saving fails the reply says
   so and the task list is left as it was.

## Example

` + "```" + `
todo read book
deadline return book /by 2019-10-15 1800
event project meeting /from 2019-10-16 1400 /to 1600
mark 1
find book
delete 1
` + "```" + `
`
