package kbd

import "testing"

type recordPIC struct {
	raised []int
}

func (r *recordPIC) Raise(line int) {
	r.raised = append(r.raised, line)
}

func TestPushDrain(t *testing.T) {
	pic := &recordPIC{}
	q := New(pic, 1)
	q.Push()
	if len(pic.raised) != 0 {
		t.Errorf("empty push raised an interrupt")
	}
	q.Push('l', 's')
	q.Push('\n')
	if len(pic.raised) != 2 || pic.raised[0] != 1 {
		t.Errorf("raised %v", pic.raised)
	}
	if got := string(q.Drain()); got != "ls\n" {
		t.Errorf("drained %q", got)
	}
	if q.Drain() != nil {
		t.Errorf("queue not empty after drain")
	}
}
