package sqlite

import (
	"errors"
	"context"
	"path/filepath"
	"testing"

	"yakstack/store"
)

// mustOpen creates a store on a fresh database file and registers
// cleanup.
func mustOpen(t *testing.T) (*Store, context.Context) {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, context.Background()
}

func mustPush(t *testing.T, s *Store, ctx context.Context, texts ...string) {
	t.Helper()
	for _, text := range texts {
		if err := s.Push(ctx, text); err != nil {
			t.Fatalf("Push(%q) error: %v", text, err)
		}
	}
}

func mustTasks(t *testing.T, s *Store, ctx context.Context) []string {
	t.Helper()
	tasks, err := s.Tasks(ctx)
	if err != nil {
		t.Fatalf("Tasks error: %v", err)
	}
	return tasks
}

func assertTasks(t *testing.T, s *Store, ctx context.Context, want ...string) {
	t.Helper()
	got := mustTasks(t, s, ctx)
	if len(got) != len(want) {
		t.Fatalf("tasks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tasks = %v, want %v", got, want)
		}
	}
}

// assertDistinctOrders verifies the no-collision invariant directly
// against the tasks table.
func assertDistinctOrders(t *testing.T, s *Store, ctx context.Context) {
	t.Helper()
	var collisions int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM (
			SELECT stack_id, task_order, count(*) c FROM tasks
			GROUP BY stack_id, task_order HAVING c > 1
		)`).Scan(&collisions)
	if err != nil {
		t.Fatalf("collision query error: %v", err)
	}
	if collisions != 0 {
		t.Fatalf("found %d order-key collisions", collisions)
	}
}

func TestFirstRunInitialization(t *testing.T) {
	s, ctx := mustOpen(t)

	name, err := s.CurrentStackName(ctx)
	if err != nil {
		t.Fatalf("CurrentStackName error: %v", err)
	}
	if name != store.DefaultStackName {
		t.Errorf("current stack = %q, want %q", name, store.DefaultStackName)
	}

	stacks, err := s.Stacks(ctx)
	if err != nil {
		t.Fatalf("Stacks error: %v", err)
	}
	if len(stacks) != 1 || stacks[0].ID != store.DefaultStackID {
		t.Errorf("initial stacks = %+v, want only the default stack", stacks)
	}
}

func TestReopenDoesNotReinitialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	ctx := context.Background()
	mustPush(t, s, ctx, "persisted")
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer func() { _ = s.Close() }()
	assertTasks(t, s, ctx, "persisted")
}

func TestPushPopLIFO(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "a", "b")

	for _, want := range []string{"b", "a"} {
		text, ok, err := s.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop error: %v", err)
		}
		if !ok || text != want {
			t.Errorf("Pop = (%q, %v), want (%q, true)", text, ok, want)
		}
	}

	_, ok, err := s.Pop(ctx)
	if err != nil {
		t.Fatalf("Pop on empty stack error: %v", err)
	}
	if ok {
		t.Error("Pop on empty stack reported a task")
	}
}

func TestPushBackBottomInsertion(t *testing.T) {
	s, ctx := mustOpen(t)
	if err := s.PushBack(ctx, "a"); err != nil {
		t.Fatalf("PushBack error: %v", err)
	}
	if err := s.PushBack(ctx, "b"); err != nil {
		t.Fatalf("PushBack error: %v", err)
	}

	text, ok, err := s.Pop(ctx)
	if err != nil || !ok {
		t.Fatalf("Pop = (%q, %v, %v)", text, ok, err)
	}
	if text != "a" {
		t.Errorf("Pop after pushbacks = %q, want %q", text, "a")
	}
	assertTasks(t, s, ctx, "b")
}

func TestOrderKeysStayDistinct(t *testing.T) {
	s, ctx := mustOpen(t)

	mustPush(t, s, ctx, "a", "b", "c")
	if err := s.PushBack(ctx, "d"); err != nil {
		t.Fatalf("PushBack error: %v", err)
	}
	if err := s.InsertAfter(ctx, 2, "e"); err != nil {
		t.Fatalf("InsertAfter error: %v", err)
	}
	if err := s.InsertAfter(ctx, 1, "f"); err != nil {
		t.Fatalf("InsertAfter error: %v", err)
	}
	if err := s.PushBack(ctx, "g"); err != nil {
		t.Fatalf("PushBack error: %v", err)
	}

	assertDistinctOrders(t, s, ctx)
}

func TestInsertAfterMiddle(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "a", "b", "c", "d")

	if err := s.InsertAfter(ctx, 1, "x"); err != nil {
		t.Fatalf("InsertAfter error: %v", err)
	}
	assertTasks(t, s, ctx, "a", "b", "x", "c", "d")
	assertDistinctOrders(t, s, ctx)
}

func TestInsertAfterBoundaries(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "a", "b", "c")

	// Position 0 behaves like PushBack.
	if err := s.InsertAfter(ctx, 0, "bottom"); err != nil {
		t.Fatalf("InsertAfter(0) error: %v", err)
	}
	assertTasks(t, s, ctx, "bottom", "a", "b", "c")

	// Last position behaves like Push.
	if err := s.InsertAfter(ctx, 3, "top"); err != nil {
		t.Fatalf("InsertAfter(count-1) error: %v", err)
	}
	assertTasks(t, s, ctx, "bottom", "a", "b", "c", "top")

	text, ok, err := s.Pop(ctx)
	if err != nil || !ok || text != "top" {
		t.Errorf("Pop = (%q, %v, %v), want top", text, ok, err)
	}
}

func TestInsertAfterOutOfRange(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "a")

	err := s.InsertAfter(ctx, 1, "x")
	var noSuch *store.NoSuchTaskError
	if !errors.As(err, &noSuch) || noSuch.Index != 1 {
		t.Errorf("InsertAfter out of range = %v, want NoSuchTaskError(1)", err)
	}
	assertTasks(t, s, ctx, "a")
}

func TestSwapIsItsOwnInverse(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "a", "b", "c")

	if err := s.Swap(ctx, 0, 2); err != nil {
		t.Fatalf("Swap error: %v", err)
	}
	assertTasks(t, s, ctx, "c", "b", "a")

	if err := s.Swap(ctx, 0, 2); err != nil {
		t.Fatalf("second Swap error: %v", err)
	}
	assertTasks(t, s, ctx, "a", "b", "c")
}

func TestSwapValidation(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "a", "b")

	err := s.Swap(ctx, 0, 5)
	var noSuch *store.NoSuchTaskError
	if !errors.As(err, &noSuch) || noSuch.Index != 5 {
		t.Errorf("Swap(0, 5) = %v, want NoSuchTaskError(5)", err)
	}

	err = s.Swap(ctx, 7, 5)
	var noSuchPair *store.NoSuchTasksError
	if !errors.As(err, &noSuchPair) || noSuchPair.First != 7 || noSuchPair.Second != 5 {
		t.Errorf("Swap(7, 5) = %v, want NoSuchTasksError(7, 5)", err)
	}

	// Failed validation must not mutate anything.
	assertTasks(t, s, ctx, "a", "b")
}

func TestKill(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "a", "b", "c")

	text, err := s.Kill(ctx, 1)
	if err != nil {
		t.Fatalf("Kill error: %v", err)
	}
	if text != "b" {
		t.Errorf("Kill(1) = %q, want %q", text, "b")
	}
	assertTasks(t, s, ctx, "a", "c")

	_, err = s.Kill(ctx, 2)
	var noSuch *store.NoSuchTaskError
	if !errors.As(err, &noSuch) {
		t.Errorf("Kill out of range = %v, want NoSuchTaskError", err)
	}
}

func TestClear(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "a", "b")

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	assertTasks(t, s, ctx)
}

func TestClearAllSpansStacks(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "on default")
	if err := s.NewStack(ctx, "work"); err != nil {
		t.Fatalf("NewStack error: %v", err)
	}
	if err := s.SwitchTo(ctx, "work"); err != nil {
		t.Fatalf("SwitchTo error: %v", err)
	}
	mustPush(t, s, ctx, "on work")

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll error: %v", err)
	}
	assertTasks(t, s, ctx)
	if err := s.SwitchTo(ctx, store.DefaultStackName); err != nil {
		t.Fatalf("SwitchTo error: %v", err)
	}
	assertTasks(t, s, ctx)
}

func TestPopTo(t *testing.T) {
	s, ctx := mustOpen(t)
	if err := s.NewStack(ctx, "later"); err != nil {
		t.Fatalf("NewStack error: %v", err)
	}
	mustPush(t, s, ctx, "a", "b")

	if err := s.PopTo(ctx, "later"); err != nil {
		t.Fatalf("PopTo error: %v", err)
	}
	assertTasks(t, s, ctx, "a")

	if err := s.SwitchTo(ctx, "later"); err != nil {
		t.Fatalf("SwitchTo error: %v", err)
	}
	assertTasks(t, s, ctx, "b")
}

func TestPopToEmptyStackIsNoOp(t *testing.T) {
	s, ctx := mustOpen(t)
	if err := s.NewStack(ctx, "later"); err != nil {
		t.Fatalf("NewStack error: %v", err)
	}

	if err := s.PopTo(ctx, "later"); err != nil {
		t.Errorf("PopTo on empty stack = %v, want nil", err)
	}
}

func TestPopToMissingStack(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "a")

	err := s.PopTo(ctx, "nope")
	var noSuch *store.NoSuchStackError
	if !errors.As(err, &noSuch) || noSuch.Name != "nope" {
		t.Errorf("PopTo missing stack = %v, want NoSuchStackError", err)
	}
	assertTasks(t, s, ctx, "a")
}

func TestNewStackDuplicate(t *testing.T) {
	s, ctx := mustOpen(t)
	if err := s.NewStack(ctx, "work"); err != nil {
		t.Fatalf("NewStack error: %v", err)
	}

	err := s.NewStack(ctx, "work")
	var exists *store.StackExistsError
	if !errors.As(err, &exists) || exists.Name != "work" {
		t.Errorf("duplicate NewStack = %v, want StackExistsError", err)
	}
}

func TestSwitchToMissingStack(t *testing.T) {
	s, ctx := mustOpen(t)

	err := s.SwitchTo(ctx, "ghost")
	var noSuch *store.NoSuchStackError
	if !errors.As(err, &noSuch) {
		t.Errorf("SwitchTo missing = %v, want NoSuchStackError", err)
	}
}

func TestDropStackRemovesStackAndTasks(t *testing.T) {
	s, ctx := mustOpen(t)
	if err := s.NewStack(ctx, "doomed"); err != nil {
		t.Fatalf("NewStack error: %v", err)
	}
	if err := s.SwitchTo(ctx, "doomed"); err != nil {
		t.Fatalf("SwitchTo error: %v", err)
	}
	mustPush(t, s, ctx, "x", "y")
	if err := s.SwitchTo(ctx, store.DefaultStackName); err != nil {
		t.Fatalf("SwitchTo error: %v", err)
	}

	if err := s.DropStack(ctx, "doomed"); err != nil {
		t.Fatalf("DropStack error: %v", err)
	}

	stacks, err := s.Stacks(ctx)
	if err != nil {
		t.Fatalf("Stacks error: %v", err)
	}
	for _, st := range stacks {
		if st.Name == "doomed" {
			t.Error("dropped stack still listed")
		}
	}

	var orphans int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM tasks WHERE stack_id NOT IN (SELECT id FROM stacks)`).Scan(&orphans); err != nil {
		t.Fatalf("orphan query error: %v", err)
	}
	if orphans != 0 {
		t.Errorf("found %d orphaned tasks after DropStack", orphans)
	}
}

func TestDropStackProtections(t *testing.T) {
	s, ctx := mustOpen(t)
	if err := s.NewStack(ctx, "work"); err != nil {
		t.Fatalf("NewStack error: %v", err)
	}
	if err := s.SwitchTo(ctx, "work"); err != nil {
		t.Fatalf("SwitchTo error: %v", err)
	}
	mustPush(t, s, ctx, "keep me")

	err := s.DropStack(ctx, store.DefaultStackName)
	var defErr *store.DefaultStackError
	if !errors.As(err, &defErr) {
		t.Errorf("DropStack(default) = %v, want DefaultStackError", err)
	}

	err = s.DropStack(ctx, "work")
	var curErr *store.CurrentStackError
	if !errors.As(err, &curErr) {
		t.Errorf("DropStack(current) = %v, want CurrentStackError", err)
	}

	// Neither failure may have mutated any table.
	stacks, err := s.Stacks(ctx)
	if err != nil {
		t.Fatalf("Stacks error: %v", err)
	}
	if len(stacks) != 2 {
		t.Errorf("stacks = %+v, want default and work intact", stacks)
	}
	assertTasks(t, s, ctx, "keep me")
}

func TestCurrentStackIsolation(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "write spec")

	if err := s.NewStack(ctx, "work"); err != nil {
		t.Fatalf("NewStack error: %v", err)
	}
	if err := s.SwitchTo(ctx, "work"); err != nil {
		t.Fatalf("SwitchTo error: %v", err)
	}
	mustPush(t, s, ctx, "buy milk")

	if err := s.SwitchTo(ctx, store.DefaultStackName); err != nil {
		t.Fatalf("SwitchTo error: %v", err)
	}
	assertTasks(t, s, ctx, "write spec")
}

func TestTaskIDAtIsRederived(t *testing.T) {
	s, ctx := mustOpen(t)
	mustPush(t, s, ctx, "a", "b", "c")

	before, err := s.TaskIDAt(ctx, 0)
	if err != nil {
		t.Fatalf("TaskIDAt error: %v", err)
	}
	if err := s.Swap(ctx, 0, 2); err != nil {
		t.Fatalf("Swap error: %v", err)
	}
	after, err := s.TaskIDAt(ctx, 2)
	if err != nil {
		t.Fatalf("TaskIDAt error: %v", err)
	}
	if before != after {
		t.Errorf("rank mapping not re-derived after swap: id %d moved to %d", before, after)
	}
}
