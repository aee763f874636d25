/*
Package compass is a conversational travel-planning assistant built as a
workflow of stateful processing nodes.

Every user message runs one turn of the graph:

	intent_router ──plan_trip──────────▶ collect_preferences ──complete──▶ generate_itinerary
	      │        ──modify_plan───────▶ modify_plan ◀──────────────────────────────┘
	      │        ──collecting────────▶ collect_preferences                        │
	      └──────────otherwise─────────▶ chat                                        ▼
	                                                                         report_itinerary

State is checkpointed per session (user id + "@" + plan id), so preference
collection resumes across turns. Text generation is reached only through
ports.TextGenerator; the langchaingo adapter in pkg/adapters/llm talks to
OpenAI-compatible endpoints and llm.Scripted replays canned answers.

# Usage

	gen, err := llm.NewOpenAI(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini", "")
	if err != nil {
		log.Fatal(err)
	}
	assistant, err := compass.New(gen, compass.WithStore(memory.NewStore()))
	if err != nil {
		log.Fatal(err)
	}
	state, err := assistant.Chat(ctx, "alice", "kyoto", "I want to plan a trip to Kyoto", nil)

pkg/runner turns a turn into the ordered SSE event sequence served by the
HTTP adapter, and cmd/compass exposes everything as a CLI.
*/
package compass
