package model

// TaskKind is the atomic unit of work the planner emits.
type TaskKind string

const (
	TaskAnalyzeFile          TaskKind = "analyze_file"
	TaskSynthesizeDirectory  TaskKind = "synthesize_directory"
	TaskAssembleKB           TaskKind = "assemble_kb"
	TaskDeleteOrphan         TaskKind = "delete_orphan"
)

// Task is one node in the plan's dependency DAG.
type Task struct {
	ID         string
	Kind       TaskKind
	Target     string
	DependsOn  []string
}

// Plan is the ordered, dependency-annotated task list produced by the
// planner. Order reflects a valid topological sort but the Executor may
// run independent tasks in any interleaving.
type Plan struct {
	Tasks []Task
}

// TaskByID returns the task with the given ID, or nil if absent.
func (p *Plan) TaskByID(id string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}
