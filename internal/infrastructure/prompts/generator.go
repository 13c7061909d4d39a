package prompts

import (
	"bytes"
	"sort"
	"strings"
	"text/template"

	"mcpchat/internal/domain/entity"
)

type ToolInfo struct {
	Name        string
	Description string
}

type SystemPromptData struct {
	Tools []ToolInfo
}

// GenerateSystemPrompt renders baseTemplate with the given tools sorted by name.
func GenerateSystemPrompt(baseTemplate string, tools []entity.ToolDefinition) (string, error) {
	infos := make([]ToolInfo, 0, len(tools))
	for _, tool := range tools {
		infos = append(infos, ToolInfo{
			Name:        tool.Name,
			Description: firstLine(tool.Description),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	tmpl, err := template.New("system").Option("missingkey=error").Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, SystemPromptData{Tools: infos}); err != nil {
		return "", err
	}

	return strings.TrimSpace(buf.String()), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
