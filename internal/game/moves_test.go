package game

import "testing"

func testMoves() []Move {
	return []Move{
		{Name: "Static Surge", Type: TypeChaos, Power: 45, PP: 2},
		{Name: "Patch Up", Type: TypeCharisma, Power: 0, PP: 1, Support: SupportEffect{Kind: SupportHeal, Value: 30}},
	}
}

func TestMoveSetSpend(t *testing.T) {
	ms := NewMoveSet(testMoves())
	if got := ms.Remaining("Static Surge"); got != 2 {
		t.Fatalf("Remaining = %d, want 2", got)
	}
	if !ms.Spend("Static Surge") {
		t.Fatal("first Spend failed")
	}
	if !ms.Spend("Static Surge") {
		t.Fatal("second Spend failed")
	}
	if ms.Spend("Static Surge") {
		t.Error("Spend succeeded with 0 PP left")
	}
	if got := ms.Remaining("Static Surge"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

func TestMoveSetSpendUnknown(t *testing.T) {
	ms := NewMoveSet(testMoves())
	if ms.Spend("Nonexistent") {
		t.Error("Spend succeeded on unknown move")
	}
}

func TestMoveSetRestoreAllCapsAtMax(t *testing.T) {
	ms := NewMoveSet(testMoves())
	ms.Spend("Static Surge")
	ms.RestoreAll(5)
	if got := ms.Remaining("Static Surge"); got != 2 {
		t.Errorf("Remaining after restore = %d, want max 2", got)
	}
	if got := ms.Remaining("Patch Up"); got != 1 {
		t.Errorf("untouched move restored past max: %d", got)
	}
}

func TestIsSupport(t *testing.T) {
	moves := testMoves()
	if moves[0].IsSupport() {
		t.Error("damaging move classified as support")
	}
	if !moves[1].IsSupport() {
		t.Error("zero-power move not classified as support")
	}
}
