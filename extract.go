// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/tmod

package tmod

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	// extractProbePattern names the temporary file used to check the output root is writable.
	extractProbePattern = ".tmod-probe-*"
	// extractPartPattern names the staging file an entry is streamed into before rename.
	extractPartPattern = ".tmod-*.part"
	// extractCopyBufferSize defines per-worker buffer size for entry streaming.
	extractCopyBufferSize = 64 * 1024
)

// extractItem is one selected entry bound to its resolved output path.
type extractItem struct {
	outPath  string
	index    int
	dirReady bool
}

// extractTask is a set of entries whose output paths are equal or nested in each
// other. Its items run sequentially in table order on one worker.
type extractTask struct {
	items []extractItem
}

// outcomeSlot is one index-tagged result cell; each slot is written by one goroutine only.
type outcomeSlot struct {
	outcome EntryOutcome
	done    bool
}

// Extract writes entries whose bodies live in data (offsets relative to data) below dstDir.
//
// Per-entry failures (escaping paths, size mismatches, corrupt bodies, filesystem
// errors) are collected in the result and do not stop the run. The returned error
// is non-nil only for run-level conditions: invalid options, an unwritable output
// root, a strict-mode path escape (nothing is written), or cancellation (partial result).
func Extract(ctx context.Context, entries []EntryInfo, data []byte, dstDir string, opts ExtractOptions) (*ExtractResult, error) {
	opts.applyDefaults()

	start := time.Now()
	sink := newEventSink(opts.OnEvent)
	slots := make([]outcomeSlot, len(entries))
	result := &ExtractResult{}

	finish := func(err error) (*ExtractResult, error) {
		collectOutcomes(result, slots)
		result.Duration = time.Since(start)
		sink.emit(RunSummary{
			FilesWritten: result.FilesWritten,
			BytesWritten: result.BytesWritten,
			Failures:     len(result.Outcomes) - result.FilesWritten,
			Duration:     result.Duration,
		})

		return result, err
	}

	matcher, err := newEntryMatcher(opts.Rules, opts.MatcherOptions)
	if err != nil {
		return finish(err)
	}

	rootAbs, err := prepareExtractRoot(dstDir)
	if err != nil {
		return finish(err)
	}

	selected := selectEntryIndexes(entries, matcher, opts.PathPrefix)
	tasks, err := planExtractTasks(entries, selected, rootAbs, opts, slots, sink)
	if err != nil {
		return finish(err)
	}

	if ctx.Err() == nil {
		prepareExtractDirs(rootAbs, tasks)
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = max(min(workers, len(tasks)), 1)

	runErr := runExtractTasks(ctx, tasks, workers, func(task extractTask, copyBuf []byte) {
		extractTaskEntries(ctx, entries, data, task, opts.FileMode, copyBuf, slots, sink)
	})

	return finish(runErr)
}

// Extract writes all selected entries of the archive below dstDir. See the package-level Extract.
func (a *Archive) Extract(ctx context.Context, dstDir string, opts ExtractOptions) (*ExtractResult, error) {
	if a == nil {
		return nil, ErrNilArchive
	}

	return Extract(ctx, a.entries, a.data, dstDir, opts)
}

// prepareExtractRoot creates the output root and checks it is writable once, before any entry.
func prepareExtractRoot(dstDir string) (string, error) {
	rootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return "", fmt.Errorf("%w: resolve output dir: %w", ErrIO, err)
	}

	if err := os.MkdirAll(rootAbs, 0o750); err != nil {
		return "", fmt.Errorf("%w: create output dir: %w", ErrIO, err)
	}

	if resolved, err := filepath.EvalSymlinks(rootAbs); err == nil {
		rootAbs = resolved
	}

	probe, err := os.CreateTemp(rootAbs, extractProbePattern)
	if err != nil {
		return "", fmt.Errorf("%w: output dir %s is not writable: %w", ErrIO, rootAbs, err)
	}

	probePath := probe.Name()
	_ = probe.Close()
	if err := os.Remove(probePath); err != nil {
		return "", fmt.Errorf("%w: remove probe file: %w", ErrIO, err)
	}

	return rootAbs, nil
}

// planExtractTasks validates selected entry paths in table order and groups entries
// whose output paths are equal, or where one is an ancestor directory of the other.
// Grouped entries run sequentially, so the result matches a table-order run.
// Rejected entries are recorded as failures. In strict mode the first escaping path
// aborts planning, so nothing gets written.
func planExtractTasks(
	entries []EntryInfo,
	selected []int,
	rootAbs string,
	opts ExtractOptions,
	slots []outcomeSlot,
	sink *eventSink,
) ([]extractTask, error) {
	groups := newPathGroups(len(selected))

	for _, idx := range selected {
		entry := entries[idx]

		outPath, err := resolveEntryOutputPath(rootAbs, entry.Path, opts.SanitizeNames)
		if err != nil {
			recordOutcome(slots, sink, EntryOutcome{Entry: entry, Index: idx, Err: err})
			if opts.Strict && errors.Is(err, ErrPathEscape) {
				return nil, fmt.Errorf("strict extract aborted at entry %d: %w", idx, err)
			}

			continue
		}

		groups.add(rootAbs, extractItem{outPath: outPath, index: idx})
	}

	return groups.tasks(), nil
}

// pathGroups is a union-find over output paths. Keys are lower-cased so that
// case-insensitive filesystems get the same grouping.
type pathGroups struct {
	parent   []int
	items    [][]extractItem
	fileNode map[string]int
	dirNodes map[string][]int
}

func newPathGroups(capHint int) *pathGroups {
	return &pathGroups{
		parent:   make([]int, 0, capHint),
		items:    make([][]extractItem, 0, capHint),
		fileNode: make(map[string]int, capHint),
		dirNodes: make(map[string][]int),
	}
}

// add places one item, merging it with every earlier item it conflicts with.
func (g *pathGroups) add(rootAbs string, item extractItem) {
	key := strings.ToLower(item.outPath)
	if node, ok := g.fileNode[key]; ok {
		g.items[node] = append(g.items[node], item)
		return
	}

	node := len(g.parent)
	g.parent = append(g.parent, node)
	g.items = append(g.items, []extractItem{item})
	g.fileNode[key] = node

	// earlier entries need this path as a directory
	if users, ok := g.dirNodes[key]; ok {
		for _, other := range users {
			g.union(node, other)
		}
		g.dirNodes[key] = []int{node}
	}

	// earlier entries occupy an ancestor directory as a file
	for dir := filepath.Dir(item.outPath); len(dir) > len(rootAbs); dir = filepath.Dir(dir) {
		dirKey := strings.ToLower(dir)
		if other, ok := g.fileNode[dirKey]; ok {
			g.union(node, other)
		}
		g.dirNodes[dirKey] = append(g.dirNodes[dirKey], node)
	}
}

func (g *pathGroups) find(node int) int {
	for g.parent[node] != node {
		g.parent[node] = g.parent[g.parent[node]]
		node = g.parent[node]
	}

	return node
}

func (g *pathGroups) union(a int, b int) {
	ra, rb := g.find(a), g.find(b)
	if ra != rb {
		g.parent[rb] = ra
	}
}

// tasks returns merged groups with items in table order, ordered by their first entry.
func (g *pathGroups) tasks() []extractTask {
	byRoot := make(map[int]int, len(g.parent))
	var tasks []extractTask

	for node := range g.parent {
		root := g.find(node)
		taskIdx, ok := byRoot[root]
		if !ok {
			taskIdx = len(tasks)
			byRoot[root] = taskIdx
			tasks = append(tasks, extractTask{})
		}

		tasks[taskIdx].items = append(tasks[taskIdx].items, g.items[node]...)
	}

	for i := range tasks {
		slices.SortFunc(tasks[i].items, func(a, b extractItem) int {
			return cmp.Compare(a.index, b.index)
		})
	}
	slices.SortFunc(tasks, func(a, b extractTask) int {
		return cmp.Compare(a.items[0].index, b.items[0].index)
	})

	return tasks
}

// prepareExtractDirs creates parent directories in table order before workers start.
// Entries below a path that another entry writes as a file are skipped; they create
// their parents themselves, in table order within their task. Failures are left to
// the per-entry directory step, which reports them against the entry.
func prepareExtractDirs(rootAbs string, tasks []extractTask) {
	var ordered []*extractItem
	files := make(map[string]struct{})
	for ti := range tasks {
		for ii := range tasks[ti].items {
			item := &tasks[ti].items[ii]
			files[strings.ToLower(item.outPath)] = struct{}{}
			ordered = append(ordered, item)
		}
	}
	slices.SortFunc(ordered, func(a, b *extractItem) int {
		return cmp.Compare(a.index, b.index)
	})

	created := make(map[string]bool, len(ordered))
	for _, item := range ordered {
		if hasFileAncestor(files, rootAbs, item.outPath) {
			continue
		}

		dir := filepath.Dir(item.outPath)
		ok, seen := created[dir]
		if !seen {
			ok = os.MkdirAll(dir, 0o750) == nil
			created[dir] = ok
		}
		item.dirReady = ok
	}
}

// hasFileAncestor reports whether a directory above outPath is in files.
func hasFileAncestor(files map[string]struct{}, rootAbs string, outPath string) bool {
	for dir := filepath.Dir(outPath); len(dir) > len(rootAbs); dir = filepath.Dir(dir) {
		if _, ok := files[strings.ToLower(dir)]; ok {
			return true
		}
	}

	return false
}

// resolveEntryOutputPath normalizes, optionally sanitizes, and resolves one entry path under rootAbs.
func resolveEntryOutputPath(rootAbs string, entryPath string, sanitize bool) (string, error) {
	relPath, err := ValidateEntryPath(entryPath)
	if err != nil {
		return "", err
	}

	if sanitize {
		relPath, err = sanitizeRelativePath(relPath)
		if err != nil {
			return "", err
		}
	}

	return resolveExtractTarget(rootAbs, relPath)
}

// runExtractTasks feeds tasks to a bounded worker pool and stops dispatching on cancellation.
func runExtractTasks(ctx context.Context, tasks []extractTask, workers int, handle func(extractTask, []byte)) error {
	if len(tasks) == 0 {
		return ctx.Err()
	}

	taskCh := make(chan extractTask)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			copyBuf := make([]byte, extractCopyBufferSize)
			for task := range taskCh {
				handle(task, copyBuf)
			}
		})
	}

dispatch:
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			break dispatch
		case taskCh <- task:
		}
	}

	close(taskCh)
	wg.Wait()

	return ctx.Err()
}

// extractTaskEntries writes every entry of one task in table order; the last one wins on disk.
func extractTaskEntries(
	ctx context.Context,
	entries []EntryInfo,
	data []byte,
	task extractTask,
	fileMode ExtractFileMode,
	copyBuf []byte,
	slots []outcomeSlot,
	sink *eventSink,
) {
	written := make(map[string]struct{}, len(task.items))
	for _, item := range task.items {
		if ctx.Err() != nil {
			return
		}

		mode := fileMode
		if _, dup := written[item.outPath]; dup {
			// earlier duplicates of this run are overwritten regardless of policy
			mode = ExtractFileModeTruncate
		}
		written[item.outPath] = struct{}{}

		entry := entries[item.index]
		n, err := extractEntry(data, entry, item, mode, copyBuf)
		recordOutcome(slots, sink, EntryOutcome{
			Entry:      entry,
			Index:      item.index,
			OutputPath: item.outPath,
			Written:    n,
			Err:        err,
		})
	}
}

// extractEntry streams one entry into a staging file next to its output path and
// renames it into place. A failed entry leaves no file behind.
func extractEntry(data []byte, entry EntryInfo, item extractItem, mode ExtractFileMode, copyBuf []byte) (int64, error) {
	if !mode.valid() {
		return 0, fmt.Errorf("unknown extract file mode %q", mode)
	}

	rc, err := openEntryStream(data, entry)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	outDir := filepath.Dir(item.outPath)
	if !item.dirReady {
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return 0, fmt.Errorf("%w: create directory for %s: %w", ErrIO, entry.Path, err)
		}
	}

	part, err := os.CreateTemp(outDir, extractPartPattern)
	if err != nil {
		return 0, fmt.Errorf("%w: create staging file for %s: %w", ErrIO, entry.Path, err)
	}
	partPath := part.Name()

	written, err := copyEntryData(part, rc, copyBuf)
	if closeErr := part.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: close %s: %w", ErrIO, entry.Path, closeErr)
	}
	if err == nil {
		if commitErr := commitExtractFile(partPath, item.outPath, mode); commitErr != nil {
			err = fmt.Errorf("%w: place %s: %w", ErrIO, entry.Path, commitErr)
		}
	}
	if err != nil {
		_ = os.Remove(partPath)
		return 0, err
	}

	return written, nil
}

// copyEntryData copies an entry stream with a caller-owned buffer.
// Write failures are wrapped in ErrIO; read failures keep their decode kind.
func copyEntryData(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		return 0, io.ErrShortBuffer
	}

	var total int64
	for {
		readN, readErr := src.Read(buf)
		if readN > 0 {
			writeN, writeErr := dst.Write(buf[:readN])
			total += int64(writeN)

			if writeErr != nil {
				return total, fmt.Errorf("%w: write: %w", ErrIO, writeErr)
			}

			if writeN != readN {
				return total, fmt.Errorf("%w: write: %w", ErrIO, io.ErrShortWrite)
			}
		}

		if readErr == nil {
			continue
		}

		if readErr == io.EOF {
			return total, nil
		}

		return total, readErr
	}
}

// recordOutcome fills the slot for one entry and emits the matching event.
func recordOutcome(slots []outcomeSlot, sink *eventSink, outcome EntryOutcome) {
	outcome.Kind = KindOf(outcome.Err)
	slots[outcome.Index] = outcomeSlot{outcome: outcome, done: true}

	if outcome.Err != nil {
		sink.emit(EntryFailed{Path: outcome.Entry.Path, Kind: outcome.Kind, Err: outcome.Err})
		return
	}

	sink.emit(EntryExtracted{Path: outcome.Entry.Path, OutputPath: outcome.OutputPath, BytesWritten: outcome.Written})
}

// collectOutcomes builds the table-ordered report from finished slots.
func collectOutcomes(result *ExtractResult, slots []outcomeSlot) {
	result.Outcomes = result.Outcomes[:0]
	result.FilesWritten = 0
	result.BytesWritten = 0

	for i := range slots {
		if !slots[i].done {
			continue
		}

		outcome := slots[i].outcome
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.OK() {
			result.FilesWritten++
			result.BytesWritten += outcome.Written
		}
	}
}

// commitExtractFile moves a finished staging file to outPath according to mode.
// create_only refuses an existing path; the other modes replace it.
func commitExtractFile(partPath string, outPath string, mode ExtractFileMode) error {
	switch mode {
	case ExtractFileModeCreateOnly:
		if _, err := os.Lstat(outPath); err == nil {
			return fmt.Errorf("%s: %w", outPath, os.ErrExist)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}

		return os.Rename(partPath, outPath)
	case ExtractFileModeAuto, ExtractFileModeOverwriteSmart, ExtractFileModeTruncate:
		return os.Rename(partPath, outPath)
	default:
		return fmt.Errorf("unknown extract file mode %q", mode)
	}
}
