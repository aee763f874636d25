/*
Package domain contains the core models of the compass travel assistant.

It defines the conversation state threaded through every workflow node, the
trip preference record collected across turns, and the itinerary tree produced
by drafting and merging. This package is kept pure and free of I/O, following
Hexagonal Architecture principles.

# Key Entities

  - SessionState: the per-conversation snapshot (messages, intent, preferences, planning).
  - Update: a partial state change returned by a node and merged by SessionState.Apply.
  - Preferences: destination, departure, dates, duration, interests.
  - Itinerary: a multi-day plan (Day -> Segment -> Activity, Day -> Accommodation).
  - Plan: a persisted itinerary with status and timestamps.
*/
package domain
