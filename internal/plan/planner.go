// Package plan implements C7 from spec.md §4.6: turning a DecisionReport
// into a topologically ordered, deterministic list of Tasks. Grounded in
// the teacher's internal/llm/queue task-submission idiom
// (_examples/billie-coop-loco/internal/llm/queue), generalized from a
// flat priority queue into an explicit dependency DAG, with task IDs
// derived as name-based google/uuid values from each task's kind and
// target rather than the teacher's counter, so identical inputs yield
// identical IDs in dry-run reports.
package plan

import (
	"sort"

	"github.com/google/uuid"

	"github.com/kbindex/indexer/internal/model"
)

// dirNode mirrors the shape the planner needs from a DirectoryContext
// plus its decision outcome, so Build stays independent of the decision
// package's internal tree-walking order.
type dirNode struct {
	path     string
	outcome  model.Outcome
	files    []fileNode
	subdirs  []*dirNode
}

type fileNode struct {
	path    string
	outcome model.Outcome
}

// Build turns tree (annotated with decisions) and the orphan list into a
// deterministic Plan, per spec.md §4.6's pseudocode.
func Build(root *model.DirectoryContext, decisions []model.Decision, orphans []model.Decision) *model.Plan {
	byPath := indexDecisions(decisions)
	dir := buildDirNode(root, byPath)

	p := &model.Plan{}
	idOf := make(map[string]string) // passed through buildDir; no entries are written

	buildDir(dir, p, idOf)

	for _, o := range orphans {
		p.Tasks = append(p.Tasks, model.Task{
			ID:     newID(model.TaskDeleteOrphan, o.Path),
			Kind:   model.TaskDeleteOrphan,
			Target: o.Path,
		})
	}
	return p
}

func indexDecisions(decisions []model.Decision) map[string]model.Decision {
	m := make(map[string]model.Decision, len(decisions))
	for _, d := range decisions {
		m[d.Path] = d
	}
	return m
}

func buildDirNode(dc *model.DirectoryContext, decisions map[string]model.Decision) *dirNode {
	d := &dirNode{path: dc.DirectoryPath}
	if dec, ok := decisions[dc.DirectoryPath]; ok {
		d.outcome = dec.Outcome
	} else {
		d.outcome = model.OutcomeSkip
	}
	for _, f := range dc.Files {
		outcome := model.OutcomeSkip
		if dec, ok := decisions[f.FilePath]; ok {
			outcome = dec.Outcome
		}
		d.files = append(d.files, fileNode{path: f.FilePath, outcome: outcome})
	}
	sort.Slice(d.files, func(i, j int) bool { return d.files[i].path < d.files[j].path })
	for _, sub := range dc.Subdirs {
		d.subdirs = append(d.subdirs, buildDirNode(sub, decisions))
	}
	sort.Slice(d.subdirs, func(i, j int) bool { return d.subdirs[i].path < d.subdirs[j].path })
	return d
}

// buildDir emits tasks bottom-up and returns this directory's
// synthesize_directory and assemble_kb task IDs (empty if the directory
// was skipped/empty, per invariant 5).
func buildDir(d *dirNode, p *model.Plan, idOf map[string]string) (synthID, assembleID string) {
	var fileDeps []string
	for _, f := range d.files {
		if f.outcome != model.OutcomeRebuild {
			continue
		}
		t := model.Task{ID: newID(model.TaskAnalyzeFile, f.path), Kind: model.TaskAnalyzeFile, Target: f.path}
		p.Tasks = append(p.Tasks, t)
		fileDeps = append(fileDeps, t.ID)
	}

	var childSynthDeps []string
	var childAssembleDeps []string
	for _, sub := range d.subdirs {
		subSynth, subAssemble := buildDir(sub, p, idOf)
		if subAssemble != "" {
			childAssembleDeps = append(childAssembleDeps, subAssemble)
		}
		if subSynth != "" {
			childSynthDeps = append(childSynthDeps, subSynth)
		}
	}

	if d.outcome != model.OutcomeRebuild {
		return "", ""
	}

	deps := append(append([]string{}, fileDeps...), childSynthDeps...)
	synth := model.Task{ID: newID(model.TaskSynthesizeDirectory, d.path), Kind: model.TaskSynthesizeDirectory, Target: d.path, DependsOn: deps}
	p.Tasks = append(p.Tasks, synth)

	// assemble_kb waits only on rebuilt children's assemble_kb tasks: kept
	// children have no task this run, and the assembler takes their summary
	// from the directory-analysis cache entry an earlier run wrote
	// (spec.md §4.6's "A_child ...
	// kept" requirement is about which data feeds the parent, not an extra
	// DAG edge — see DESIGN.md).
	assembleDeps := append([]string{synth.ID}, childAssembleDeps...)
	assemble := model.Task{ID: newID(model.TaskAssembleKB, d.path), Kind: model.TaskAssembleKB, Target: d.path, DependsOn: assembleDeps}
	p.Tasks = append(p.Tasks, assemble)

	return synth.ID, assemble.ID
}

// newID derives a task ID from its kind and target; a plan holds at most
// one task per (kind, target) pair, so IDs are unique within it.
func newID(kind model.TaskKind, target string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(kind)+":"+target)).String()
}
