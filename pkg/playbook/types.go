package playbook

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Playbook is an ordered list of plays, executed top to bottom.
type Playbook []Play

// Play binds a host pattern to an ordered list of tasks and the
// variables/roles/handlers that scope to it.
type Play struct {
	Name        string                 `yaml:"name"`
	Hosts       string                 `yaml:"hosts"`
	GatherFacts *bool                  `yaml:"gather_facts"`
	Vars        map[string]interface{} `yaml:"vars"`
	VarsFiles   []string               `yaml:"vars_files"`
	Roles       []string               `yaml:"roles"`
	Tasks       []Task                 `yaml:"tasks"`
	Handlers    []Handler              `yaml:"handlers"`
	Become      bool                   `yaml:"become"`
	BecomeUser  string                 `yaml:"become_user"`
	Tags        []string               `yaml:"tags"`

	// Strategy, Serial, Throttle and MaxFailPercentage are parsed so the
	// loader can reject them explicitly (see ValidateSupported) instead
	// of silently ignoring a construct this runner doesn't implement.
	Strategy         string      `yaml:"strategy"`
	Serial           interface{} `yaml:"serial"`
	Throttle         int         `yaml:"throttle"`
	MaxFailPercent   interface{} `yaml:"max_fail_percentage"`
}

// ShouldGatherFacts reports whether the play's tasks run with facts
// pre-populated, defaulting to true (ansible-playbook's own default)
// when gather_facts is omitted from the play entirely.
func (p *Play) ShouldGatherFacts() bool {
	return p.GatherFacts == nil || *p.GatherFacts
}

// Handler is a notify-triggered task, matched by Name or any of Listen.
type Handler struct {
	Task
	Listen []string `yaml:"listen"`
}

// UnmarshalYAML decodes a Handler by running Task's module-key
// resolution first, then separately pulling out `listen`.
func (h *Handler) UnmarshalYAML(value *yaml.Node) error {
	if err := h.Task.UnmarshalYAML(value); err != nil {
		return err
	}
	var fields struct {
		Listen []string `yaml:"listen"`
	}
	if err := value.Decode(&fields); err != nil {
		return err
	}
	h.Listen = fields.Listen
	return nil
}

// RoleSpec is one entry of a play's `roles:` list: a role name plus
// the variables passed to it (either the short string form or the
// long {role: x, vars...} mapping form).
type RoleSpec struct {
	Name string
	Vars map[string]interface{}
}

// Role is a loaded role directory: its defaults/vars (lowest/highest
// of the two role-scoped tiers) plus its tasks and handlers.
type Role struct {
	Name     string
	Path     string
	Defaults map[string]interface{}
	Vars     map[string]interface{}
	Tasks    []Task
	Handlers []Handler
}

// Task is a single unit of work: a module invocation, or a block of
// them with rescue/always clauses.
type Task struct {
	Name         string
	Module       string
	ModuleArgs   map[string]interface{}
	Register     string
	When         []string
	IgnoreErrors bool
	ChangedWhen  []string
	FailedWhen   []string
	Notify       []string
	Tags         []string
	Vars         map[string]interface{}

	Become       bool
	BecomeUser   string
	BecomeMethod string
	DelegateTo   string

	Loop        interface{}
	LoopControl LoopControl

	// Block/Rescue/Always make this task a container rather than a leaf;
	// Module is empty when any of these are set.
	Block  []Task
	Rescue []Task
	Always []Task
}

// LoopControl customizes loop iteration (loop_var, label, pause).
type LoopControl struct {
	LoopVar string `yaml:"loop_var"`
	Label   string `yaml:"label"`
	Pause   int    `yaml:"pause"`
}

// IsBlock reports whether this task is a block container rather than
// a module invocation.
func (t *Task) IsBlock() bool {
	return len(t.Block) > 0 || len(t.Rescue) > 0 || len(t.Always) > 0
}

// taskReservedKeys are the task-level directives that are never a
// module name, so whatever key remains after removing these from the
// YAML mapping is the module being invoked. This lets any registered
// (or future) module parse correctly without a fixed whitelist.
var taskReservedKeys = map[string]bool{
	"name": true, "register": true, "when": true, "ignore_errors": true,
	"changed_when": true, "failed_when": true, "notify": true, "tags": true,
	"vars": true, "become": true, "become_user": true, "become_method": true,
	"delegate_to": true, "loop": true, "loop_control": true, "with_items": true,
	"block": true, "rescue": true, "always": true, "check_mode": true, "listen": true,
}

// UnmarshalYAML decodes a Task, locating the module key as whatever
// mapping key isn't a reserved directive (per taskReservedKeys).
func (t *Task) UnmarshalYAML(value *yaml.Node) error {
	type taskFields struct {
		Name         string      `yaml:"name"`
		Register     string      `yaml:"register"`
		When         yaml.Node   `yaml:"when"`
		IgnoreErrors bool        `yaml:"ignore_errors"`
		ChangedWhen  yaml.Node   `yaml:"changed_when"`
		FailedWhen   yaml.Node   `yaml:"failed_when"`
		Notify       []string    `yaml:"notify"`
		Tags         []string    `yaml:"tags"`
		Vars         map[string]interface{} `yaml:"vars"`
		Become       bool        `yaml:"become"`
		BecomeUser   string      `yaml:"become_user"`
		BecomeMethod string      `yaml:"become_method"`
		DelegateTo   string      `yaml:"delegate_to"`
		Loop         interface{} `yaml:"loop"`
		WithItems    interface{} `yaml:"with_items"`
		LoopControl  LoopControl `yaml:"loop_control"`
		Block        []Task      `yaml:"block"`
		Rescue       []Task      `yaml:"rescue"`
		Always       []Task      `yaml:"always"`
	}

	var fields taskFields
	if err := value.Decode(&fields); err != nil {
		return err
	}

	t.Name = fields.Name
	t.Register = fields.Register
	t.IgnoreErrors = fields.IgnoreErrors
	t.Notify = fields.Notify
	t.Tags = fields.Tags
	t.Vars = fields.Vars
	t.Become = fields.Become
	t.BecomeUser = fields.BecomeUser
	t.BecomeMethod = fields.BecomeMethod
	t.DelegateTo = fields.DelegateTo
	t.LoopControl = fields.LoopControl
	t.Block = fields.Block
	t.Rescue = fields.Rescue
	t.Always = fields.Always

	var err error
	if t.When, err = decodeStringList(&fields.When); err != nil {
		return fmt.Errorf("task %q: when: %w", t.Name, err)
	}
	if t.ChangedWhen, err = decodeStringList(&fields.ChangedWhen); err != nil {
		return fmt.Errorf("task %q: changed_when: %w", t.Name, err)
	}
	if t.FailedWhen, err = decodeStringList(&fields.FailedWhen); err != nil {
		return fmt.Errorf("task %q: failed_when: %w", t.Name, err)
	}

	t.Loop = fields.Loop
	if t.Loop == nil {
		t.Loop = fields.WithItems
	}

	if t.IsBlock() {
		t.ModuleArgs = make(map[string]interface{})
		return nil
	}

	t.ModuleArgs = make(map[string]interface{})
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("task %q: expected a mapping", t.Name)
	}

	for i := 0; i < len(value.Content); i += 2 {
		key := value.Content[i].Value
		if taskReservedKeys[key] {
			continue
		}
		if t.Module != "" {
			return fmt.Errorf("task %q: ambiguous module key, found both %q and %q", t.Name, t.Module, key)
		}
		t.Module = key

		valueNode := value.Content[i+1]
		switch valueNode.Kind {
		case yaml.ScalarNode:
			if valueNode.Value != "" {
				t.ModuleArgs["_raw_params"] = valueNode.Value
			}
		case yaml.MappingNode:
			var args map[string]interface{}
			if err := valueNode.Decode(&args); err != nil {
				return fmt.Errorf("task %q: module args for %q: %w", t.Name, key, err)
			}
			t.ModuleArgs = args
		default:
			return fmt.Errorf("task %q: unsupported module args format for %q", t.Name, key)
		}
	}

	if t.Module == "" {
		return fmt.Errorf("no module found in task: %s", t.Name)
	}

	return nil
}

// decodeStringList accepts when/changed_when/failed_when as either a
// single scalar expression or a list of expressions (AND-combined).
func decodeStringList(node *yaml.Node) ([]string, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil, nil
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected scalar or list")
	}
}

// TaskResult is the outcome of running one task against one host.
type TaskResult struct {
	Host    string
	Task    string
	Changed bool
	Failed  bool
	Skipped bool
	Unreachable bool
	Msg     string
	Data    map[string]interface{}
}

// PlayRecap summarizes a play's outcome across all its hosts.
type PlayRecap struct {
	PlayName string
	Stats    map[string]*HostStats
}

// HostStats tallies one host's task outcomes within a play.
type HostStats struct {
	Ok          int
	Changed     int
	Failed      int
	Skipped     int
	Unreachable int
	Rescued     int
	Ignored     int
}

// String renders the recap line ansible-playbook prints per host.
func (s *HostStats) String() string {
	return fmt.Sprintf("ok=%d changed=%d unreachable=%d failed=%d skipped=%d rescued=%d ignored=%d",
		s.Ok, s.Changed, s.Unreachable, s.Failed, s.Skipped, s.Rescued, s.Ignored)
}

// IsSuccess reports whether the host completed the play without
// (unrescued) failures or becoming unreachable.
func (s *HostStats) IsSuccess() bool {
	return s.Failed == 0 && s.Unreachable == 0
}

// ParsePlaybook decodes a playbook document and fills in play defaults.
func ParsePlaybook(data []byte) (Playbook, error) {
	var playbook Playbook
	if err := yaml.Unmarshal(data, &playbook); err != nil {
		return nil, fmt.Errorf("failed to parse playbook: %w", err)
	}

	for i := range playbook {
		if playbook[i].Vars == nil {
			playbook[i].Vars = make(map[string]interface{})
		}
	}

	return playbook, nil
}

// ValidateSupported rejects plays that use constructs this linear-
// strategy runner doesn't implement, surfacing them as a parse-time
// error instead of a silently wrong execution.
func ValidateSupported(pb Playbook) error {
	for _, play := range pb {
		if play.Strategy != "" && play.Strategy != "linear" {
			return fmt.Errorf("play %q: unsupported strategy %q", play.Name, play.Strategy)
		}
		if play.Serial != nil {
			return fmt.Errorf("play %q: serial is not supported", play.Name)
		}
		if play.Throttle != 0 {
			return fmt.Errorf("play %q: throttle is not supported", play.Name)
		}
		if play.MaxFailPercent != nil {
			return fmt.Errorf("play %q: max_fail_percentage is not supported", play.Name)
		}
		if err := validateTasks(play.Name, play.Tasks); err != nil {
			return err
		}
	}
	return nil
}

func validateTasks(playName string, tasks []Task) error {
	for _, t := range tasks {
		if err := validateTasks(playName, t.Block); err != nil {
			return err
		}
		if err := validateTasks(playName, t.Rescue); err != nil {
			return err
		}
		if err := validateTasks(playName, t.Always); err != nil {
			return err
		}
	}
	return nil
}

// FormatTaskName builds the "play : task" label ansible-playbook prints.
func FormatTaskName(playName, taskName string) string {
	if taskName == "" {
		return playName
	}
	if playName == "" {
		return taskName
	}
	return fmt.Sprintf("%s : %s", playName, taskName)
}

// NormalizeModuleArgs converts short-form module arguments
// (_raw_params) into the field a module actually expects.
func NormalizeModuleArgs(moduleName string, args map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range args {
		result[k] = v
	}

	if rawParams, ok := result["_raw_params"].(string); ok && rawParams != "" {
		switch moduleName {
		case "command", "shell", "raw":
			// these modules consume _raw_params directly
		case "debug":
			if _, hasMsg := result["msg"]; !hasMsg {
				result["msg"] = rawParams
				delete(result, "_raw_params")
			}
		}
	}

	return result
}

// IsTemplateString reports whether s contains Jinja2 expression syntax.
func IsTemplateString(s string) bool {
	return strings.Contains(s, "{{") && strings.Contains(s, "}}")
}
