package model

// Invariants that must hold across every pipeline run, enforced jointly
// by the handler, decision, plan, executor, and kbfile packages:
//
//  1. One owner per path. Each file-system path processed by the pipeline
//     is owned by exactly one Handler; a Handler's writes are confined to
//     the paths declared by its KnowledgePath/CachePath for that
//     handler type.
//  2. Bottom-up completion. A directory's synthesize_directory task
//     depends on the analyze_file tasks of its rebuilt child files and
//     the synthesize_directory tasks of its rebuilt child directories;
//     its assemble_kb depends on its own synthesize_directory and on the
//     assemble_kb of every rebuilt child directory. Kept children have no
//     tasks in the plan, so nothing waits on them.
//  3. At-most-one concurrent build per fingerprint: the cache guarantees
//     two concurrent requests for the same (path, stage) key share a
//     single in-flight computation.
//  4. Knowledge-file freshness: after a successful run, for every
//     directory D in scope, mtime(kb(D)) is at least the max mtime of
//     every subdirectory's KB file and every child file's cache entry.
//  5. Empty directories are terminal: a directory with zero processable
//     files and zero in-scope subdirectories is SKIP/EMPTY_DIRECTORY and
//     produces no KB file, and does not re-enter the plan solely because
//     its KB file is missing.
//  6. Project root is always rebuilt: REBUILD/PROJECT_ROOT_FORCED
//     regardless of staleness signals.
//  7. Replay determinism: when replay is on and a cached response exists
//     for a (stage, target) pair, no LLM call is made.
