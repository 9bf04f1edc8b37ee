package domain

import "testing"

func TestUserPatchApply(t *testing.T) {
	base := User{ID: 1, Username: "jdoe", LastName: "Doe", Age: 30}

	u := base
	UserPatch{}.Apply(&u)
	if u != base {
		t.Fatalf("empty patch changed user: %+v", u)
	}

	u = base
	UserPatch{Age: Some(0)}.Apply(&u)
	if u.Age != 0 || u.Username != "jdoe" || u.LastName != "Doe" {
		t.Fatalf("unexpected result of age-only patch: %+v", u)
	}

	u = base
	UserPatch{Username: Some("jane"), LastName: Some("Roe")}.Apply(&u)
	if u.Username != "jane" || u.LastName != "Roe" || u.Age != 30 || u.ID != 1 {
		t.Fatalf("unexpected result of name patch: %+v", u)
	}
}

func TestFromPtr(t *testing.T) {
	if FromPtr[string](nil).Set {
		t.Fatal("nil pointer must be unset")
	}
	empty := ""
	if opt := FromPtr(&empty); !opt.Set || opt.Value != "" {
		t.Fatalf("pointer to zero value must be set: %+v", opt)
	}
}
