package store

import (
	"testing"

	"github.com/vanderheijden86/cardtree/pkg/model"
)

func problemKinds(problems []Problem) map[ProblemKind]int {
	out := make(map[ProblemKind]int)
	for _, p := range problems {
		out[p.Kind]++
	}
	return out
}

func TestValidateClean(t *testing.T) {
	s := MustMemoryStore(scenarioNodes())
	if problems := Validate(s); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestValidateReportsBrokenReferences(t *testing.T) {
	s := MustMemoryStore([]model.Node{
		{ID: "P", Kind: model.KindParent, ChildrenIDs: []model.ID{"L", "ghost"}},
		// L forgets to list P and points at a parent that does not exist.
		{ID: "L", Kind: model.KindLeaf, ParentIDs: []model.ID{"Q"}},
		{ID: "Orphan", Kind: model.KindParent, ParentID: "P"},
	})

	kinds := problemKinds(Validate(s))
	if kinds[ProblemUnresolved] != 2 {
		t.Errorf("expected 2 unresolved references, got %d", kinds[ProblemUnresolved])
	}
	if kinds[ProblemBackReference] != 2 {
		t.Errorf("expected 2 broken back-references, got %d", kinds[ProblemBackReference])
	}
}

func TestValidateDetectsCycles(t *testing.T) {
	s := MustMemoryStore([]model.Node{
		{ID: "R", Kind: model.KindParent, ChildrenIDs: []model.ID{"X"}},
		{ID: "X", Kind: model.KindParent, ParentID: "Y", ChildrenIDs: []model.ID{"Y"}},
		{ID: "Y", Kind: model.KindParent, ParentID: "X", ChildrenIDs: []model.ID{"X"}},
		{ID: "S", Kind: model.KindParent, ChildrenIDs: []model.ID{"S"}},
	})

	problems := Validate(s)
	kinds := problemKinds(problems)
	if kinds[ProblemCycle] != 2 {
		t.Fatalf("expected 2 cycle problems (X<->Y and S self loop), got %v", problems)
	}
}

func TestValidateDepth(t *testing.T) {
	s := MustMemoryStore([]model.Node{
		{ID: "L0", Kind: model.KindParent, ChildrenIDs: []model.ID{"L1"}},
		{ID: "L1", Kind: model.KindParent, ParentID: "L0", ChildrenIDs: []model.ID{"L2"}},
		{ID: "L2", Kind: model.KindParent, ParentID: "L1", ChildrenIDs: []model.ID{"L3"}},
		{ID: "L3", Kind: model.KindParent, ParentID: "L2"},
	})
	kinds := problemKinds(Validate(s))
	if kinds[ProblemDepth] != 1 {
		t.Errorf("expected one too-deep parent, got %d", kinds[ProblemDepth])
	}
}
