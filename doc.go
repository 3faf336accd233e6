/*
Package cadenza is a durable, turn-based workflow engine for a music-store
support assistant. It runs conversations as directed graphs of steps over a
single checkpointed state: a turn executes until it finishes or until a step
suspends on a question for the user, and a later answer resumes exactly the
suspended step, never re-running anything before it.

# Concept

Each user message is one invocation of the turn graph. The turn is first
routed to one of four flows (email verification, song identification from
lyrics, track purchase, or free conversation with catalogue tools), and flows
nest: purchase and song identification both hand off to the shared payment
flow. When any nested step needs user input, the whole path of graph frames
is persisted with the state, so a suspension survives process restarts and
can be resumed by any replica holding the checkpoint store.

Side effects follow an at-most-once discipline. Payment intents carry
idempotency keys, charges are replayed from the recorded transaction rather
than re-executed, and a resume whose value was already answered returns the
recorded result.

# Usage

New() alone yields a fully working in-memory engine against the seeded demo
catalogue. Production wiring swaps the store, locker and service backends
through options.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/harmonyshop/cadenza"
	)

	func main() {
		eng := cadenza.New()
		ctx := context.Background()

		// Start a turn. Buying a track suspends on a confirmation.
		result, err := eng.Submit(ctx, "thread-1", "I'd like to buy track 9")
		if err != nil {
			log.Fatal(err)
		}
		if result.Suspended() {
			fmt.Println(result.Prompt.Text)

			// Answer the prompt; the payment flow picks up where it stopped.
			result, err = eng.Resume(ctx, "thread-1", "Yes")
			if err != nil {
				log.Fatal(err)
			}
		}
		for _, item := range result.Outbox {
			fmt.Println(item.Text)
		}
	}
*/
package cadenza
