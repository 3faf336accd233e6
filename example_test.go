package cadenza_test

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/harmonyshop/cadenza"
)

// Example demonstrates a complete purchase conversation: the engine
// suspends on the payment confirmation and the answer resumes it.
func Example() {
	eng := cadenza.New()
	ctx := context.Background()

	result, err := eng.Submit(ctx, "demo", "I want to buy track 9")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.Prompt.Text)

	result, err = eng.Resume(ctx, "demo", "Yes")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.Outbox[len(result.Outbox)-1].Text)

	// Output:
	// Confirm purchase for $0.99?
	// Purchase complete! Thank you for your order.
}

// ExampleRunner shows the scripted chat loop over custom IO.
func ExampleRunner() {
	eng := cadenza.New()

	var out bytes.Buffer
	runner := cadenza.NewRunner()
	runner.Input = strings.NewReader("hello\nexit\n")
	runner.Output = &out
	runner.Headless = true

	if err := runner.Run(context.Background(), eng); err != nil {
		log.Fatal(err)
	}
	fmt.Println(strings.Contains(out.String(), "Bye!"))

	// Output:
	// true
}
