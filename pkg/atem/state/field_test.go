package state

import "testing"

func TestFieldZeroValueIsInvalid(t *testing.T) {
	var f Field[int]
	if f.IsValid() {
		t.Error("zero-value Field reports valid")
	}
	if _, ok := f.Get(); ok {
		t.Error("zero-value Field.Get reports ok")
	}
}

func TestFieldFirstSetAlwaysApplies(t *testing.T) {
	var f Field[int]
	if !f.Set(500, 7) {
		t.Error("first Set on an unset field returned false")
	}
	v, ok := f.Get()
	if !ok || v != 7 {
		t.Errorf("Get() = (%v, %v), want (7, true)", v, ok)
	}
}

func TestFieldRejectsOlderUpdate(t *testing.T) {
	var f Field[int]
	f.Set(500, 7)
	if f.Set(100, 9) {
		t.Error("Set with an older packet id returned true")
	}
	v, _ := f.Get()
	if v != 7 {
		t.Errorf("value changed to %v despite rejected Set", v)
	}
}

func TestFieldAppliesNewerUpdate(t *testing.T) {
	var f Field[int]
	f.Set(100, 7)
	if !f.Set(500, 9) {
		t.Error("Set with a newer packet id returned false")
	}
	v, _ := f.Get()
	if v != 9 {
		t.Errorf("value = %v, want 9", v)
	}
}

func TestFieldZeroIDAlwaysApplies(t *testing.T) {
	var f Field[int]
	f.Set(20000, 7)
	if !f.Set(0, 9) {
		t.Error("Set with the always-newer id 0 returned false")
	}
	v, _ := f.Get()
	if v != 9 {
		t.Errorf("value = %v, want 9", v)
	}
}

func TestNewFieldIsValidFromConstruction(t *testing.T) {
	f := NewField(42)
	v, ok := f.Get()
	if !ok || v != 42 {
		t.Errorf("Get() = (%v, %v), want (42, true)", v, ok)
	}
}
