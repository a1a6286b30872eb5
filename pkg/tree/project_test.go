package tree_test

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/store"
	"github.com/vanderheijden86/cardtree/pkg/testutil"
	"github.com/vanderheijden86/cardtree/pkg/tree"
)

func ids(items []tree.FlatItem) []model.ID {
	out := make([]model.ID, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestProjectScenario(t *testing.T) {
	s := store.MustMemoryStore(testutil.Scenario())
	open := tree.NewOpenState(tree.DefaultOpen).Set("P2", false)

	items := tree.Project(s, open)
	testutil.AssertIDs(t, ids(items), "P1", "A", "P2")

	want := []tree.FlatItem{
		{ID: "P1", Kind: model.KindParent, Level: 0, ParentID: "", Position: 0},
		{ID: "A", Kind: model.KindLeaf, Level: 1, ParentID: "P1", Position: 0},
		{ID: "P2", Kind: model.KindParent, Level: 1, ParentID: "P1", Position: 1},
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("expected %+v, got %+v", want, items)
	}

	open = open.Toggle("P1")
	testutil.AssertIDs(t, ids(tree.Project(s, open)), "P1")
}

func TestProjectDefaultClosed(t *testing.T) {
	s := store.MustMemoryStore(testutil.Scenario())
	open := tree.NewOpenState(tree.DefaultClosed)
	testutil.AssertIDs(t, ids(tree.Project(s, open)), "P1")

	open = open.Toggle("P1")
	testutil.AssertIDs(t, ids(tree.Project(s, open)), "P1", "A", "P2")

	open = open.Toggle("P2")
	items := tree.Project(s, open)
	testutil.AssertIDs(t, ids(items), "P1", "A", "P2", "B", "C")
	if items[3].Level != 2 || items[3].ParentID != "P2" || items[4].Position != 1 {
		t.Errorf("unexpected level-2 linkage: %+v", items[3:])
	}
}

func TestProjectSkipsUnresolvedChildren(t *testing.T) {
	s := store.MustMemoryStore([]model.Node{
		{ID: "R", Kind: model.KindParent, ChildrenIDs: []model.ID{"ghost", "L1", "L2"}},
		{ID: "L1", Kind: model.KindLeaf, ParentIDs: []model.ID{"R"}},
		{ID: "L2", Kind: model.KindLeaf, ParentIDs: []model.ID{"R"}},
	})
	items := tree.Project(s, tree.NewOpenState(tree.DefaultOpen))
	testutil.AssertIDs(t, ids(items), "R", "L1", "L2")
	if items[1].Position != 0 || items[2].Position != 1 {
		t.Errorf("positions should count resolved children only, got %d and %d", items[1].Position, items[2].Position)
	}
}

func TestProjectDoesNotExpandLevelTwo(t *testing.T) {
	s := store.MustMemoryStore([]model.Node{
		{ID: "R", Kind: model.KindParent, ChildrenIDs: []model.ID{"M"}},
		{ID: "M", Kind: model.KindParent, ParentID: "R", ChildrenIDs: []model.ID{"D"}},
		{ID: "D", Kind: model.KindParent, ParentID: "M", ChildrenIDs: []model.ID{"X"}},
		{ID: "X", Kind: model.KindLeaf, ParentIDs: []model.ID{"D"}},
	})
	items := tree.Project(s, tree.NewOpenState(tree.DefaultOpen))
	testutil.AssertIDs(t, ids(items), "R", "M", "D")
	if items[2].Expandable() {
		t.Error("level-2 parent should not be expandable")
	}
}

func TestProjectSharedLeafAppearsUnderEachParent(t *testing.T) {
	s := store.MustMemoryStore([]model.Node{
		{ID: "R", Kind: model.KindParent, ChildrenIDs: []model.ID{"P", "Q"}},
		{ID: "P", Kind: model.KindParent, ParentID: "R", ChildrenIDs: []model.ID{"L"}},
		{ID: "Q", Kind: model.KindParent, ParentID: "R", ChildrenIDs: []model.ID{"L"}},
		{ID: "L", Kind: model.KindLeaf, ParentIDs: []model.ID{"P", "Q"}},
	})
	items := tree.Project(s, tree.NewOpenState(tree.DefaultOpen))
	testutil.AssertIDs(t, ids(items), "R", "P", "L", "Q", "L")
	if items[2].ParentID != "P" || items[4].ParentID != "Q" {
		t.Errorf("expected each copy linked to its own parent, got %+v", items)
	}
}

// checkLinkage verifies pre-order level and parent linkage for every item.
func checkLinkage(t *rapid.T, s *store.MemoryStore, items []tree.FlatItem) {
	for i, it := range items {
		if it.Level == 0 {
			if it.ParentID != "" {
				t.Fatalf("root %s has parent %s", it.ID, it.ParentID)
			}
			continue
		}
		j := i - 1
		for j >= 0 && items[j].Level >= it.Level {
			j--
		}
		if j < 0 || items[j].Level != it.Level-1 || items[j].ID != it.ParentID {
			t.Fatalf("item %d (%s) not preceded by its parent %s", i, it.ID, it.ParentID)
		}
		p, _ := s.Node(it.ParentID)
		found := false
		for _, c := range p.ChildrenIDs {
			if c == it.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s does not list %s", it.ParentID, it.ID)
		}
	}
}

func TestProjectCompletenessProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nodes := testutil.TreeGen().Draw(t, "nodes")
		s := store.MustMemoryStore(nodes)
		items := tree.Project(s, tree.NewOpenState(tree.DefaultOpen))

		// Every resolved child of every expandable parent is emitted once per
		// occurrence.
		want := len(s.RootParents())
		for _, it := range items {
			if it.Expandable() {
				n, _ := s.Node(it.ID)
				want += len(s.Children(n))
			}
		}
		if len(items) != want {
			t.Fatalf("expected %d items, got %d", want, len(items))
		}
		checkLinkage(t, s, items)
	})
}

func TestProjectMinimalityRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nodes := testutil.TreeGen().Draw(t, "nodes")
		s := store.MustMemoryStore(nodes)

		open := tree.NewOpenState(tree.DefaultOpen)
		for _, id := range testutil.ParentIDs(nodes) {
			if rapid.Bool().Draw(t, "open-"+string(id)) {
				continue
			}
			open = open.Set(id, false)
		}
		before := tree.Project(s, open)
		checkLinkage(t, s, before)

		var expandable []int
		for i, it := range before {
			if it.Expandable() && open.IsOpen(it.ID) {
				expandable = append(expandable, i)
			}
		}
		if len(expandable) == 0 {
			return
		}
		i := rapid.SampledFrom(expandable).Draw(t, "toggle")
		id := before[i].ID

		// subtree block of item i is every following item with a deeper level
		end := i + 1
		for end < len(before) && before[end].Level > before[i].Level {
			end++
		}

		// a parent listed twice may own several blocks; only compare when unique
		if tree.IndexOf(before, id) != i {
			return
		}
		for _, it := range before[end:] {
			if it.ID == id {
				return
			}
		}

		closed := tree.Project(s, open.Toggle(id))
		if len(closed) != len(before)-(end-i-1) {
			t.Fatalf("closing %s: expected %d items, got %d", id, len(before)-(end-i-1), len(closed))
		}
		reopened := tree.Project(s, open.Toggle(id).Toggle(id))
		if !reflect.DeepEqual(reopened, before) {
			t.Fatalf("reopening %s did not restore the projection", id)
		}
	})
}

func TestRowStart(t *testing.T) {
	var nodes []model.Node
	root := model.Node{ID: "R", Kind: model.KindParent}
	for _, id := range []model.ID{"a", "b", "c", "d", "e", "f"} {
		root.ChildrenIDs = append(root.ChildrenIDs, id)
		nodes = append(nodes, model.Node{ID: id, Kind: model.KindLeaf, ParentIDs: []model.ID{"R"}})
	}
	nodes = append([]model.Node{root}, nodes...)
	s := store.MustMemoryStore(nodes)
	items := tree.Project(s, tree.NewOpenState(tree.DefaultOpen))

	tests := []struct {
		index, perRow, want int
	}{
		{0, 4, 0}, // parent rows are never snapped
		{1, 4, 1},
		{3, 4, 1},
		{4, 4, 1},
		{5, 4, 5},
		{6, 4, 5},
		{6, 1, 6},
		{4, 3, 4},
	}
	for _, tt := range tests {
		if got := tree.RowStart(items, tt.index, tt.perRow); got != tt.want {
			t.Errorf("RowStart(%d, %d) = %d, want %d", tt.index, tt.perRow, got, tt.want)
		}
	}
}

func TestRowStartSkipsNestedSubtrees(t *testing.T) {
	// R: [a, P(x, y), b, c, d]; the open P splits a from b, c, d.
	s := store.MustMemoryStore([]model.Node{
		{ID: "R", Kind: model.KindParent, ChildrenIDs: []model.ID{"a", "P", "b", "c", "d"}},
		{ID: "a", Kind: model.KindLeaf, ParentIDs: []model.ID{"R"}},
		{ID: "P", Kind: model.KindParent, ParentID: "R", ChildrenIDs: []model.ID{"x", "y"}},
		{ID: "x", Kind: model.KindLeaf, ParentIDs: []model.ID{"P"}},
		{ID: "y", Kind: model.KindLeaf, ParentIDs: []model.ID{"P"}},
		{ID: "b", Kind: model.KindLeaf, ParentIDs: []model.ID{"R"}},
		{ID: "c", Kind: model.KindLeaf, ParentIDs: []model.ID{"R"}},
		{ID: "d", Kind: model.KindLeaf, ParentIDs: []model.ID{"R"}},
	})
	items := tree.Project(s, tree.NewOpenState(tree.DefaultOpen))
	testutil.AssertIDs(t, ids(items), "R", "a", "P", "x", "y", "b", "c", "d")

	// c starts no earlier than b, the first leaf after P's subtree.
	if got := tree.RowStart(items, 6, 4); got != 5 {
		t.Errorf("expected row start 5, got %d", got)
	}
	// y shares a row with x under P.
	if got := tree.RowStart(items, 4, 4); got != 3 {
		t.Errorf("expected row start 3, got %d", got)
	}
}

func TestRowStartRestartsAfterSiblingParent(t *testing.T) {
	// R: [A, B, PX, C, D, E, F, G] with PX closed.
	nodes := []model.Node{
		{ID: "R", Kind: model.KindParent, ChildrenIDs: []model.ID{"A", "B", "PX", "C", "D", "E", "F", "G"}},
		{ID: "PX", Kind: model.KindParent, ParentID: "R"},
	}
	for _, id := range []model.ID{"A", "B", "C", "D", "E", "F", "G"} {
		nodes = append(nodes, model.Node{ID: id, Kind: model.KindLeaf, ParentIDs: []model.ID{"R"}})
	}
	items := tree.Project(store.MustMemoryStore(nodes), tree.NewOpenState(tree.DefaultOpen))
	testutil.AssertIDs(t, ids(items), "R", "A", "B", "PX", "C", "D", "E", "F", "G")

	tests := []struct {
		id   model.ID
		want int
	}{
		{"A", 1},
		{"B", 1},
		{"PX", 3},
		{"C", 4},
		{"D", 4},
		{"F", 4},
		{"G", 8},
	}
	for _, tt := range tests {
		i := tree.IndexOf(items, tt.id)
		if got := tree.RowStart(items, i, 4); got != tt.want {
			t.Errorf("RowStart(%s) = %d, want %d", tt.id, got, tt.want)
		}
	}
}
