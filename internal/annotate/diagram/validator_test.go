package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		valid bool
	}{
		{"minimal mindmap", "mindmap\n  Biology", true},
		{"nested mindmap", "mindmap\n  Biology\n    Cells\n      Mitochondria\n    Genetics\n      DNA", true},
		{"tab indented", "mindmap\n\tRoot\n\t\tChild", true},
		{"leading blank lines", "\n\nmindmap\n  Root", true},
		{"other diagram types pass", "graph TD\n  A[Start] --> B{Choice}", true},
		{"flowchart", "flowchart LR\n  a --> b", true},
		{"unknown type", "diagram\n  Root", false},
		{"text before declaration", "Here is your map:\nmindmap\n  Root", false},
		{"empty", "   \n ", false},
		{"bracket in label", "mindmap\n  Root\n    Child [x]", false},
		{"paren in root", "mindmap\n  root((Biology))", false},
		{"pipe in label", "mindmap\n  Root\n    a | b", false},
		{"depth jump", "mindmap\n  Root\n      Grandchild", false},
		{"inconsistent unit", "mindmap\n  Root\n     Child", false},
		{"mixed tabs and spaces", "mindmap\n  Root\n \t  Child", false},
		{"no nodes", "mindmap\n", false},
		{"two roots", "mindmap\n  Root\n  Other", false},
		{"unindented node", "mindmap\nRoot", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.src)
			assert.Equal(t, tt.valid, res.Valid, "errors: %v", res.Errors)
			if !tt.valid {
				assert.NotEmpty(t, res.Errors)
			}
		})
	}
}
