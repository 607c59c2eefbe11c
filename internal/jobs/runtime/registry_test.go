package runtime

import "testing"

type namedHandler string

func (h namedHandler) Type() string { return string(h) }
func (h namedHandler) Run(*Context) error { return nil }

func TestRegistryQueuesSorted(t *testing.T) {
	r := NewRegistry()
	for _, q := range []string{"lesson_translate", "course_generate"} {
		if err := r.Register(namedHandler(q)); err != nil {
			t.Fatalf("Register %s: %v", q, err)
		}
	}
	if err := r.Register(namedHandler("course_generate")); err == nil {
		t.Fatalf("duplicate registration accepted")
	}
	if err := r.Register(namedHandler("")); err == nil {
		t.Fatalf("empty queue accepted")
	}
	got := r.Queues()
	if len(got) != 2 || got[0] != "course_generate" || got[1] != "lesson_translate" {
		t.Fatalf("queues=%v", got)
	}
	if _, ok := r.Get("course_generate"); !ok {
		t.Fatalf("handler not found")
	}
}
