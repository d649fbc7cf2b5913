package playbook

import (
	"github.com/sansible/sansible/pkg/template"
)

// TemplateEngineInterface is the contract the runner depends on; it is
// satisfied by *template.Engine (pkg/template), a single pongo2-backed
// rendering engine for task arguments, when conditions, and loops.
type TemplateEngineInterface interface {
	RenderString(text string, vars map[string]interface{}) (string, error)
	RenderValue(value interface{}, vars map[string]interface{}) (interface{}, error)
	RenderArgs(args map[string]interface{}, vars map[string]interface{}) (map[string]interface{}, error)
	EvaluateCondition(expr string, vars map[string]interface{}) (bool, error)
	Close() error
}

// NewDefaultTemplateEngine builds the pongo2-backed engine. lookupDir is
// the playbook's directory, used to resolve relative lookup() paths.
func NewDefaultTemplateEngine(lookupDir string) TemplateEngineInterface {
	return template.New(lookupDir)
}
