package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type scriptedClient struct {
	reply string
	err   error
	calls int
}

func (c *scriptedClient) Reply(_ context.Context, _ []Turn) (string, error) {
	c.calls++
	return c.reply, c.err
}

func TestMemoryResetAndPrime(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Prime([]Turn{
		{Role: RoleSystem, Text: "primer"},
		{Role: RoleUser, Text: "hi"},
	})
	m.Append(RoleModel, "hello")

	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}

	turns := m.Turns()
	turns[0].Text = "mutated"
	if m.Turns()[0].Text != "primer" {
		t.Error("Turns() returned a slice aliasing internal state")
	}

	m.Reset()
	if m.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", m.Len())
	}
}

func TestMemoryDropLast(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.DropLast() // no-op on an empty buffer

	m.Append(RoleUser, "hi")
	m.Append(RoleModel, "hello")
	m.DropLast()

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if m.Turns()[0].Text != "hi" {
		t.Errorf("remaining turn = %+v, want the user turn", m.Turns()[0])
	}
}

func TestEnginePredict(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{reply: "the pool opens at 7am"}
	e := NewEngine(client)
	e.Prime([]Turn{{Role: RoleSystem, Text: "primer"}})

	reply, err := e.Predict(context.Background(), "when does the pool open?")
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if reply != "the pool opens at 7am" {
		t.Errorf("reply = %q", reply)
	}

	turns := e.Memory().Turns()
	if len(turns) != 3 {
		t.Fatalf("memory holds %d turns, want 3", len(turns))
	}
	if turns[1].Role != RoleUser || turns[2].Role != RoleModel {
		t.Errorf("unexpected transcript roles: %+v", turns)
	}
}

func TestEnginePredictRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{err: fmt.Errorf("backend down")}
	e := NewEngine(client)
	e.Prime([]Turn{{Role: RoleSystem, Text: "primer"}})

	if _, err := e.Predict(context.Background(), "hello"); err == nil {
		t.Fatal("Predict succeeded, want error")
	}
	if e.Memory().Len() != 1 {
		t.Errorf("memory holds %d turns after failed predict, want primer only", e.Memory().Len())
	}

	// A retry after recovery sees a clean transcript.
	client.err = nil
	client.reply = "hi there"
	if _, err := e.Predict(context.Background(), "hello"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if e.Memory().Len() != 3 {
		t.Errorf("memory holds %d turns after retry, want 3", e.Memory().Len())
	}
}

func TestEnginePredictWithoutClient(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	_, err := e.Predict(context.Background(), "hello")
	if !errors.Is(err, ErrNoModel) {
		t.Fatalf("Predict error = %v, want ErrNoModel", err)
	}
}

func TestEnginePredictEmptyInput(t *testing.T) {
	t.Parallel()

	e := NewEngine(&scriptedClient{reply: "x"})
	if _, err := e.Predict(context.Background(), "   "); err == nil {
		t.Fatal("Predict on blank input succeeded, want error")
	}
	if e.Memory().Len() != 0 {
		t.Errorf("blank input left %d turns in memory, want 0", e.Memory().Len())
	}
}
