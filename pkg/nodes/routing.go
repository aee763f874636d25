package nodes

import (
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/workflow"
)

// RouteIntent picks the node after intent_router. Rules, in order:
// plan_trip starts collection, modify_plan modifies, an unfinished collection
// continues, anything else chats.
func RouteIntent(s *domain.SessionState) string {
	switch {
	case s.Intent.Has(domain.IntentPlanTrip):
		return CollectPreferences
	case s.Intent.Has(domain.IntentModifyPlan):
		return ModifyPlan
	case s.UserPreferences.InProgress():
		return CollectPreferences
	default:
		return Chat
	}
}

// RouteAfterCollect advances to generation once preferences are complete.
func RouteAfterCollect(s *domain.SessionState) string {
	if s.UserPreferences != nil && s.UserPreferences.Complete {
		return GenerateItinerary
	}
	return workflow.End
}

// Build wires the node set into the travel-planning graph.
func Build(n *Set, opts ...workflow.Option) (*workflow.Graph, error) {
	return workflow.NewBuilder().
		AddNode(IntentRouter, n.Intent).
		AddNode(Chat, n.Chat).
		AddNode(CollectPreferences, n.CollectPreferences).
		AddNode(GenerateItinerary, n.GenerateItinerary).
		AddNode(ModifyPlan, n.ModifyPlan).
		AddNode(ReportItinerary, n.Report).
		SetEntryPoint(IntentRouter).
		AddConditionalEdges(IntentRouter, RouteIntent, map[string]string{
			Chat:               Chat,
			CollectPreferences: CollectPreferences,
			ModifyPlan:         ModifyPlan,
		}).
		AddConditionalEdges(CollectPreferences, RouteAfterCollect, map[string]string{
			GenerateItinerary: GenerateItinerary,
			workflow.End:      workflow.End,
		}).
		AddEdge(GenerateItinerary, ModifyPlan).
		AddEdge(ModifyPlan, ReportItinerary).
		AddEdge(ReportItinerary, workflow.End).
		AddEdge(Chat, workflow.End).
		Compile(opts...)
}
