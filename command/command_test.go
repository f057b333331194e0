package command

import (
	"context"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	r := NewRouter("!")

	tests := []struct {
		content  string
		wantName string
		wantArgs []string
		wantOK   bool
	}{
		{"!summarize short https://youtu.be/x", "summarize", []string{"short", "https://youtu.be/x"}, true},
		{"  !Summarize   LONG   url  ", "summarize", []string{"LONG", "url"}, true},
		{"!help", "help", []string{}, true},
		{"!", "", nil, false},
		{"hello there", "", nil, false},
		{"?summarize short url", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			name, args, ok := r.Parse(tt.content)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, name)
			}
			if tt.wantOK && !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("expected args %v, got %v", tt.wantArgs, args)
			}
		})
	}
}

func TestDispatch(t *testing.T) {
	r := NewRouter("!")
	called := 0
	r.Handle(Spec{Name: "summarize"}, HandlerFunc(func(ctx context.Context, inv *Invocation) error {
		called++
		return nil
	}))

	handled, err := r.Dispatch(context.Background(), &Invocation{Name: "SUMMARIZE"})
	if err != nil || !handled {
		t.Fatalf("expected handled without error, got handled=%v err=%v", handled, err)
	}
	if called != 1 {
		t.Errorf("expected handler to be called once, got %d", called)
	}

	handled, err = r.Dispatch(context.Background(), &Invocation{Name: "play"})
	if err != nil || handled {
		t.Errorf("expected unknown command to be ignored, got handled=%v err=%v", handled, err)
	}
}

func TestSpecsSorted(t *testing.T) {
	r := NewRouter("!")
	r.Handle(Spec{Name: "summarize"}, HandlerFunc(nil))
	r.Handle(Spec{Name: "help"}, HandlerFunc(nil))
	r.Handle(Spec{Name: "history"}, HandlerFunc(nil))

	specs := r.Specs()
	var names []string
	for _, s := range specs {
		names = append(names, s.Name)
	}
	expected := []string{"help", "history", "summarize"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("expected %v, got %v", expected, names)
	}
}

func TestReplyWithoutResponder(t *testing.T) {
	inv := &Invocation{}
	if err := inv.Reply(context.Background(), "hi"); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}
