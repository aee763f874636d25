/*
Package ports defines the driven ports (interfaces) of the compass assistant.

These interfaces decouple the workflow and its nodes from external
implementations, so the same core runs against real model providers, hotel
APIs and databases, or against scripted fakes in tests.

# Key Interfaces

  - TextGenerator: free-text, streamed and structured completions.
  - ToolCallingGenerator: completions that may request function calls.
  - CheckpointStore: persists per-session workflow state.
  - DistributedLocker: serializes turns of one session across replicas.
  - PlanRepository: CRUD over finalized plans.
  - HotelSearcher: candidate accommodations for an itinerary.
*/
package ports
