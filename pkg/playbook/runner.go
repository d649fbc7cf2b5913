package playbook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/sansible/sansible/pkg/connection"
	"github.com/sansible/sansible/pkg/facts"
	"github.com/sansible/sansible/pkg/inventory"
	"github.com/sansible/sansible/pkg/logger"
	"github.com/sansible/sansible/pkg/module"
	"github.com/sansible/sansible/pkg/reporter"
)

// Forks bounds how many hosts a task runs against concurrently,
// mirroring ansible-playbook's --forks / ANSIBLE_FORKS default of 5.
const defaultForks = 5

// Runner executes a parsed Playbook against an inventory using the
// linear strategy: every task runs on every still-active host before
// the next task starts.
type Runner struct {
	inventory    *inventory.Manager
	connMgr      *connection.Manager
	modExec      *module.Executor
	varMgr       *VariableManager
	template     TemplateEngineInterface
	reporter     reporter.Reporter
	roleLoader   *RoleLoader
	taskIncluder *TaskIncluder
	playbookDir  string
	forks        int
	check        bool
	diff         bool
}

// NewRunner builds a Runner for the given inventory. playbookDir is
// used to resolve relative template/lookup, role, and include paths.
func NewRunner(inv *inventory.Manager, playbookDir string) *Runner {
	playbookPath := filepath.Join(playbookDir, "playbook.yml")
	return &Runner{
		inventory:    inv,
		connMgr:      connection.NewManager(),
		modExec:      module.NewExecutor(),
		varMgr:       NewVariableManager(inv),
		template:     NewDefaultTemplateEngine(playbookDir),
		reporter:     reporter.NewHumanReporter(false),
		roleLoader:   NewRoleLoader(playbookPath),
		taskIncluder: NewTaskIncluder(playbookPath),
		playbookDir:  playbookDir,
		forks:        defaultForks,
	}
}

// SetForks overrides the default concurrency bound.
func (r *Runner) SetForks(n int) {
	if n > 0 {
		r.forks = n
	}
}

// SetCheckMode toggles check-mode (no changes applied) for every task.
func (r *Runner) SetCheckMode(check bool) { r.check = check }

// SetDiffMode toggles diff output for modules that support it.
func (r *Runner) SetDiffMode(diff bool) { r.diff = diff }

// SetReporter overrides the default human-console reporter, e.g. with
// reporter.NewJSONReporter for machine-readable output.
func (r *Runner) SetReporter(rep reporter.Reporter) { r.reporter = rep }

// SetExtraVars records --extra-vars (tier 7), delegated to the
// inventory manager since it's the tier owner.
func (r *Runner) SetExtraVars(vars map[string]interface{}) {
	r.inventory.SetExtraVars(vars)
}

// Close releases the template engine's resources.
func (r *Runner) Close() error {
	return r.template.Close()
}

// Run executes every play in order, stopping at the first play that
// ends with failures.
func (r *Runner) Run(playbook Playbook) error {
	for _, play := range playbook {
		if err := r.ExecutePlay(&play); err != nil {
			return fmt.Errorf("play '%s' failed: %w", play.Name, err)
		}
	}
	return nil
}

// hostState tracks one host's standing within a play: whether it has
// dropped out (failed without rescue, or gone unreachable) and what
// handlers it has queued via notify.
type hostState struct {
	host            *inventory.Host
	failed          bool
	unreachable     bool
	notifiedHandlers map[string]bool
}

// ExecutePlay runs every task of play against its matched hosts.
func (r *Runner) ExecutePlay(play *Play) error {
	r.reporter.PlayHeader(play.Name)
	r.varMgr.ClearRegisteredVars()
	r.varMgr.SetPlayVars(play.Vars)

	hosts, err := r.inventory.GetHosts(play.Hosts)
	if err != nil {
		return fmt.Errorf("failed to get hosts: %w", err)
	}
	if len(hosts) == 0 {
		return fmt.Errorf("no hosts matched pattern: %s", play.Hosts)
	}

	hostNames := make([]string, len(hosts))
	for i, h := range hosts {
		hostNames[i] = h.Name
	}
	r.varMgr.SetPlayHosts(hostNames)

	states := make(map[string]*hostState, len(hosts))
	stats := make(map[string]*HostStats, len(hosts))
	for _, h := range hosts {
		states[h.Name] = &hostState{host: h, notifiedHandlers: map[string]bool{}}
		stats[h.Name] = &HostStats{}
	}

	if play.ShouldGatherFacts() {
		r.gatherFacts(states, stats)
	}

	tasks, err := r.expandPlayTasks(play)
	if err != nil {
		return fmt.Errorf("failed to expand play tasks: %w", err)
	}

	for _, task := range tasks {
		if !r.anyActive(states) {
			r.reporter.Warning("No more hosts available, stopping play")
			break
		}
		r.runTaskAcrossHosts(play, &task, states, stats, play.Become, play.BecomeUser)
	}

	r.flushHandlers(play, states, stats)

	r.printPlayRecap(play.Name, stats)

	for _, stat := range stats {
		if !stat.IsSuccess() {
			return fmt.Errorf("play had failures")
		}
	}
	return nil
}

// gatherFacts connects to every still-active host and merges its
// ansible_* facts into the variable context, mirroring
// ansible-playbook's implicit "Gathering Facts" task. A host that
// can't be reached here is marked unreachable up front rather than
// failing on the first real task with a less specific error.
func (r *Runner) gatherFacts(states map[string]*hostState, stats map[string]*HostStats) {
	r.reporter.TaskHeader("Gathering Facts")
	for name, st := range states {
		conn, err := r.connMgr.Connect(st.host)
		if err != nil {
			st.unreachable = true
			stats[name].Unreachable++
			r.reporter.TaskResult(name, fmt.Sprintf("connection failed: %v", err), false, false, false)
			continue
		}
		gathered, err := facts.GatherFacts(conn)
		conn.Close()
		if err != nil {
			r.reporter.Warning(fmt.Sprintf("[%s] failed to gather facts: %v", name, err))
			continue
		}
		r.varMgr.SetHostVars(name, gathered)
		stats[name].Ok++
		r.reporter.TaskResult(name, "", false, false, false)
	}
}

// expandPlayTasks builds the play's effective task list: each entry of
// play.Roles loaded and prepended (defaults/vars folded into the
// role's tasks' Vars, handlers merged into play.Handlers so they're
// notify-flushable like the play's own), followed by play.Tasks with
// import_tasks / include_role entries expanded in place.
func (r *Runner) expandPlayTasks(play *Play) ([]Task, error) {
	var tasks []Task

	for _, roleName := range play.Roles {
		role, err := r.roleLoader.LoadRole(RoleSpec{Name: roleName})
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", roleName, err)
		}
		for _, t := range role.Tasks {
			tasks = append(tasks, withRoleVars(t, role))
		}
		play.Handlers = append(play.Handlers, role.Handlers...)
	}

	for i := range play.Tasks {
		expanded, err := r.taskIncluder.ExpandTask(&play.Tasks[i], play.Vars)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, expanded...)
	}

	return tasks, nil
}

// withRoleVars folds a role's defaults (lowest precedence) and vars
// (role-scoped, overriding defaults) into a task's own Vars, without
// clobbering a var the task already sets explicitly.
func withRoleVars(t Task, role *Role) Task {
	merged := make(map[string]interface{}, len(role.Defaults)+len(role.Vars)+len(t.Vars))
	for k, v := range role.Defaults {
		merged[k] = v
	}
	for k, v := range role.Vars {
		merged[k] = v
	}
	for k, v := range t.Vars {
		merged[k] = v
	}
	t.Vars = merged
	return t
}

func (r *Runner) anyActive(states map[string]*hostState) bool {
	for _, s := range states {
		if !s.failed && !s.unreachable {
			return true
		}
	}
	return false
}

// runTaskAcrossHosts runs task (or, if it's a block, its Block/Rescue/
// Always children) on every still-active host, bounded by forks.
func (r *Runner) runTaskAcrossHosts(play *Play, task *Task, states map[string]*hostState, stats map[string]*HostStats, playBecome bool, playBecomeUser string) {
	taskName := task.Name
	if taskName == "" {
		taskName = task.Module
	}
	if task.IsBlock() {
		taskName = "block"
	}
	r.reporter.TaskHeader(FormatTaskName(play.Name, taskName))

	sem := semaphore.NewWeighted(int64(r.forks))
	ctx := context.Background()
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, st := range states {
		if st.failed || st.unreachable {
			continue
		}
		wg.Add(1)
		_ = sem.Acquire(ctx, 1)
		go func(name string, st *hostState) {
			defer wg.Done()
			defer sem.Release(1)

			result := r.executeTaskTree(task, st, playBecome, playBecomeUser)

			mu.Lock()
			defer mu.Unlock()
			r.printTaskResult(result)
			hostStat := stats[name]
			switch {
			case result.Unreachable:
				hostStat.Unreachable++
				st.unreachable = true
			case result.Failed:
				if task.IgnoreErrors {
					hostStat.Ignored++
				} else {
					hostStat.Failed++
					st.failed = true
				}
			case result.Skipped:
				hostStat.Skipped++
			default:
				hostStat.Ok++
				if result.Changed {
					hostStat.Changed++
				}
			}
		}(name, st)
	}

	wg.Wait()
}

// executeTaskTree runs a single task, recursing into block/rescue/
// always when task is a container rather than a module leaf.
func (r *Runner) executeTaskTree(task *Task, st *hostState, playBecome bool, playBecomeUser string) *TaskResult {
	if task.IsBlock() {
		return r.executeBlock(task, st, playBecome, playBecomeUser)
	}
	return r.executeLeaf(task, st, playBecome, playBecomeUser)
}

func (r *Runner) executeBlock(task *Task, st *hostState, playBecome bool, playBecomeUser string) *TaskResult {
	blockFailed := false
	var last *TaskResult
	for i := range task.Block {
		last = r.executeTaskTree(&task.Block[i], st, playBecome, playBecomeUser)
		if last.Failed && !task.Block[i].IgnoreErrors {
			blockFailed = true
			break
		}
	}

	if blockFailed && len(task.Rescue) > 0 {
		for i := range task.Rescue {
			last = r.executeTaskTree(&task.Rescue[i], st, playBecome, playBecomeUser)
			if last.Failed {
				break
			}
		}
		blockFailed = last.Failed
	}

	for i := range task.Always {
		last = r.executeTaskTree(&task.Always[i], st, playBecome, playBecomeUser)
	}

	if last == nil {
		last = &TaskResult{Host: st.host.Name}
	}
	last.Failed = blockFailed
	return last
}

// executeLeaf runs a single module invocation on one host: when
// evaluation, loop expansion, arg rendering, connect, execute,
// changed_when/failed_when override, and register. When task.Loop is
// set it runs once per item, folding the per-item results into a
// single ansible-style {results: [...]} result.
func (r *Runner) executeLeaf(task *Task, st *hostState, playBecome bool, playBecomeUser string) *TaskResult {
	host := st.host
	context := r.varMgr.GetContext(host.Name)
	for k, v := range task.Vars {
		context[k] = v
	}

	shouldRun, err := r.template.EvaluateCondition(joinWhen(task.When), context)
	if err != nil {
		return &TaskResult{Host: host.Name, Task: task.Name, Failed: true,
			Msg: fmt.Sprintf("failed to evaluate when condition: %v", err), Data: map[string]interface{}{}}
	}
	if !shouldRun {
		return &TaskResult{Host: host.Name, Task: task.Name, Skipped: true,
			Msg: "skipped due to when condition", Data: map[string]interface{}{}}
	}

	items, err := r.expandLoop(task, context)
	if err != nil {
		return &TaskResult{Host: host.Name, Task: task.Name, Failed: true,
			Msg: fmt.Sprintf("failed to expand loop: %v", err), Data: map[string]interface{}{}}
	}
	if items == nil {
		one := r.executeOne(task, st, context, playBecome, playBecomeUser)
		if !one.Failed && !one.Unreachable {
			for _, h := range task.Notify {
				st.notifiedHandlers[h] = true
			}
		}
		return one
	}

	loopVar := task.LoopControl.LoopVar
	if loopVar == "" {
		loopVar = "item"
	}

	itemResults := make([]map[string]interface{}, 0, len(items))
	aggregate := &TaskResult{Host: host.Name, Task: task.Name, Data: make(map[string]interface{})}
	for _, item := range items {
		itemContext := make(map[string]interface{}, len(context)+1)
		for k, v := range context {
			itemContext[k] = v
		}
		itemContext[loopVar] = item

		one := r.executeOne(task, st, itemContext, playBecome, playBecomeUser)
		itemResults = append(itemResults, withItem(one.Data, loopVar, item))

		if one.Changed {
			aggregate.Changed = true
		}
		if one.Failed && !task.IgnoreErrors {
			aggregate.Failed = true
		}
		if one.Unreachable {
			aggregate.Unreachable = true
		}
	}
	aggregate.Data["results"] = itemResults
	aggregate.Msg = fmt.Sprintf("all items completed (%d)", len(items))

	if aggregate.Unreachable {
		return aggregate
	}
	if !aggregate.Failed {
		for _, h := range task.Notify {
			st.notifiedHandlers[h] = true
		}
	}
	return aggregate
}

func withItem(data map[string]interface{}, loopVar string, item interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out[loopVar] = item
	return out
}

// expandLoop evaluates task.Loop against context into a concrete slice
// of items, or returns nil if the task has no loop.
func (r *Runner) expandLoop(task *Task, context map[string]interface{}) ([]interface{}, error) {
	if task.Loop == nil {
		return nil, nil
	}
	rendered, err := r.template.RenderValue(task.Loop, context)
	if err != nil {
		return nil, err
	}
	switch v := rendered.(type) {
	case []interface{}:
		return v, nil
	case []string:
		items := make([]interface{}, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items, nil
	default:
		return []interface{}{v}, nil
	}
}

// executeOne connects (to the delegated host when task.DelegateTo is
// set, otherwise the executing host) and runs the module once.
func (r *Runner) executeOne(task *Task, st *hostState, context map[string]interface{}, playBecome bool, playBecomeUser string) *TaskResult {
	host := st.host
	result := &TaskResult{Host: host.Name, Task: task.Name, Data: make(map[string]interface{})}

	renderedArgs, err := r.template.RenderArgs(task.ModuleArgs, context)
	if err != nil {
		result.Failed = true
		result.Msg = fmt.Sprintf("failed to render args: %v", err)
		return result
	}
	normalizedArgs := NormalizeModuleArgs(task.Module, renderedArgs)

	if err := r.preprocessModuleArgs(task.Module, normalizedArgs, context); err != nil {
		result.Failed = true
		result.Msg = err.Error()
		return result
	}

	targetHost := host
	if task.DelegateTo != "" {
		delegated, derr := r.inventory.GetHost(task.DelegateTo)
		if derr != nil {
			result.Failed = true
			result.Msg = fmt.Sprintf("delegate_to %q: %v", task.DelegateTo, derr)
			return result
		}
		targetHost = delegated
	}

	conn, err := r.connMgr.Connect(targetHost)
	if err != nil {
		result.Failed = true
		result.Unreachable = true
		result.Msg = fmt.Sprintf("connection failed: %v", err)
		result.Data["unreachable"] = true
		return result
	}
	defer conn.Close()

	become := task.Become || playBecome
	becomeUser := task.BecomeUser
	if becomeUser == "" {
		becomeUser = playBecomeUser
	}

	modResult, err := r.modExec.Execute(conn, task.Module, normalizedArgs, module.RunOptions{
		Become:       become,
		BecomeUser:   becomeUser,
		BecomeMethod: task.BecomeMethod,
		Check:        r.check,
		Diff:         r.diff,
	})
	if err != nil {
		result.Failed = true
		result.Msg = err.Error()
		return result
	}

	result.Changed = modResult.Changed
	result.Failed = modResult.Failed || modResult.Unreachable
	result.Unreachable = modResult.Unreachable
	result.Msg = modResult.Msg

	for k, v := range modResult.AnsibleFacts {
		r.varMgr.SetHostVar(host.Name, k, v)
	}

	result.Data = map[string]interface{}{
		"changed":     modResult.Changed,
		"failed":      modResult.Failed,
		"unreachable": modResult.Unreachable,
		"msg":         modResult.Msg,
		"rc":          modResult.RC,
		"stdout":      modResult.Stdout,
		"stderr":      modResult.Stderr,
	}
	for k, v := range modResult.Data {
		result.Data[k] = v
	}

	if len(task.ChangedWhen) > 0 {
		changed, cerr := r.template.EvaluateCondition(joinWhen(task.ChangedWhen), withResult(context, result.Data))
		if cerr == nil {
			result.Changed = changed
			result.Data["changed"] = changed
		}
	}
	if len(task.FailedWhen) > 0 {
		failed, ferr := r.template.EvaluateCondition(joinWhen(task.FailedWhen), withResult(context, result.Data))
		if ferr == nil {
			result.Failed = failed
			result.Data["failed"] = failed
		}
	}

	if task.Register != "" {
		r.varMgr.SetHostVar(host.Name, task.Register, result.Data)
	}

	return result
}

// preprocessModuleArgs fills in the pieces of a module's argument map
// that depend on the templating engine rather than plain variable
// substitution: the template module's file content, and the assert
// module's boolean condition list. Mutates args in place.
func (r *Runner) preprocessModuleArgs(moduleName string, args map[string]interface{}, context map[string]interface{}) error {
	switch moduleName {
	case "template":
		src, ok := args["src"].(string)
		if !ok || src == "" {
			return fmt.Errorf("template module requires 'src' argument")
		}
		path := src
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.playbookDir, "templates", src)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %q: %w", src, err)
		}
		rendered, err := r.template.RenderString(string(raw), context)
		if err != nil {
			return fmt.Errorf("failed to render template %q: %w", src, err)
		}
		args["_rendered_content"] = rendered
	case "assert":
		that, ok := args["that"].([]interface{})
		if !ok {
			if single, ok := args["that"].(string); ok {
				that = []interface{}{single}
			} else {
				return fmt.Errorf("assert module requires 'that' argument")
			}
		}
		results := make([]bool, 0, len(that))
		exprs := make([]string, 0, len(that))
		for _, item := range that {
			expr := fmt.Sprintf("%v", item)
			ok, err := r.template.EvaluateCondition(expr, context)
			if err != nil {
				return fmt.Errorf("failed to evaluate assertion %q: %w", expr, err)
			}
			results = append(results, ok)
			exprs = append(exprs, expr)
		}
		args["_that_results"] = results
		args["_that_exprs"] = exprs
	}
	return nil
}

func withResult(context map[string]interface{}, data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(context)+1)
	for k, v := range context {
		out[k] = v
	}
	out["result"] = data
	for k, v := range data {
		out[k] = v
	}
	return out
}

func joinWhen(exprs []string) string {
	if len(exprs) == 0 {
		return ""
	}
	if len(exprs) == 1 {
		return exprs[0]
	}
	joined := "(" + exprs[0] + ")"
	for _, e := range exprs[1:] {
		joined += " and (" + e + ")"
	}
	return joined
}

// flushHandlers runs every handler that was notified by at least one
// active host, once per host that notified it, at the end of the play.
func (r *Runner) flushHandlers(play *Play, states map[string]*hostState, stats map[string]*HostStats) {
	for _, handler := range play.Handlers {
		names := append([]string{handler.Name}, handler.Listen...)
		for _, st := range states {
			if st.failed || st.unreachable {
				continue
			}
			notified := false
			for _, n := range names {
				if st.notifiedHandlers[n] {
					notified = true
					break
				}
			}
			if !notified {
				continue
			}
			r.reporter.TaskHeader(FormatTaskName(play.Name, "handler: "+handler.Name))
			result := r.executeLeaf(&handler.Task, st, play.Become, play.BecomeUser)
			r.printTaskResult(result)
			hostStat := stats[st.host.Name]
			if result.Failed {
				hostStat.Failed++
			} else {
				hostStat.Ok++
				if result.Changed {
					hostStat.Changed++
				}
			}
		}
	}
}

func (r *Runner) printTaskResult(result *TaskResult) {
	r.reporter.TaskResult(result.Host, result.Msg, result.Changed, result.Failed, result.Skipped)
}

func (r *Runner) printPlayRecap(playName string, stats map[string]*HostStats) {
	loggerStats := make(map[string]*logger.PlayStats)
	for host, stat := range stats {
		loggerStats[host] = &logger.PlayStats{
			Ok:          stat.Ok,
			Changed:     stat.Changed,
			Failed:      stat.Failed,
			Skipped:     stat.Skipped,
			Unreachable: stat.Unreachable,
			Rescued:     stat.Rescued,
			Ignored:     stat.Ignored,
		}
	}
	r.reporter.PlayRecap(loggerStats)
}
