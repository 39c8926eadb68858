package ai

import (
	"fmt"
	"strings"

	"github.com/DachengChen/askSQL/config"
)

// formatInstructions describe the only accepted reply shape.
const formatInstructions = `The output should be formatted as a JSON instance that conforms to the JSON schema below.

{"type": "object", "properties": {"query": {"type": "string", "description": "The generated SQL statement"}}, "required": ["query"]}

Return only the JSON object, with no explanation and no markdown.`

const promptTemplate = `You are an expert in %s. Given the table and columns below, write one SQL statement that fulfils the user's request.

Table: %s
Columns: %s

User request: %s

Rules:
- %s
- You may generate SELECT, INSERT, UPDATE or DELETE statements.
- Use only the table and columns listed above.
- Produce exactly one statement.

%s`

func engineHint(engine config.Engine) (name, syntax string) {
	if engine == config.EnginePostgres {
		return "PostgreSQL", "Use PostgreSQL syntax: LIMIT for row limits, double quotes for identifiers."
	}
	return "Microsoft SQL Server", "Use SQL Server (T-SQL) syntax: TOP instead of LIMIT, square brackets for identifiers."
}

// BuildPrompt renders the generation prompt.
func BuildPrompt(engine config.Engine, table string, columns []string, request string) string {
	name, syntax := engineHint(engine)
	return fmt.Sprintf(promptTemplate,
		name, table, strings.Join(columns, ", "), strings.TrimSpace(request), syntax, formatInstructions)
}
