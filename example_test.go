package espalier_test

import (
	"context"
	"fmt"
	"log"

	"github.com/nbrandt/espalier"
	"github.com/nbrandt/espalier/pkg/adapters/memory"
	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/dsl"
)

// Example demonstrates a complete conversation: a skill is built in
// code, started on an in-memory channel, answered over two turns, and
// finishes with a rendered prompt.
func Example() {
	skill := dsl.New("com.example.signup").
		Block("ask-name", "input.text").
		Prop("key", "name").
		Prop("required", true).
		Move("welcome").
		Block("welcome", "prompt.text").
		Prop("text", "Welcome, {{.data.name}}!").
		Move("end").
		Block("end", "terminal").
		Build()

	// The memory binder buffers replies; a real host implements
	// ports.Binder over its own storage and messaging.
	bd := memory.NewBinder("user-1", "op-1", "channel-1")
	bd.AddSkill(skill)

	eng := espalier.New()
	ctx := context.Background()

	// Launch the skill. The conversation parks on the input block.
	if err := eng.StartSkill(ctx, bd, "user-1", "com.example.signup"); err != nil {
		log.Fatal(err)
	}

	// The next statement answers the pending input and the skill runs
	// through to its terminal.
	if err := eng.Handle(ctx, bd, &domain.InputStatement{UserID: "user-1", Text: "Ada"}); err != nil {
		log.Fatal(err)
	}

	for _, out := range bd.Drain() {
		for _, node := range out.Nodes {
			fmt.Println(node.Text())
		}
	}
	// Output: Welcome, Ada!
}
