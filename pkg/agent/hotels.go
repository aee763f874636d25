package agent

import (
	"context"
	"fmt"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/aretw0/compass/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

// HotelToolName is the function name offered to the model.
const HotelToolName = "search_accommodations"

// HotelToolSpec describes the accommodation search tool.
var HotelToolSpec = domain.Tool{
	Name: HotelToolName,
	Description: "Search candidate hotels for every night of the current itinerary. " +
		"Each day is searched around the location of its last activity.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"travelers": map[string]any{
				"type":        "integer",
				"description": "Number of adults staying.",
				"minimum":     1,
			},
		},
		"required": []string{"travelers"},
	},
}

type hotelArgs struct {
	Travelers int `mapstructure:"travelers"`
}

func decodeHotelArgs(raw map[string]any) (hotelArgs, error) {
	var args hotelArgs
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &args,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return args, err
	}
	if err := dec.Decode(raw); err != nil {
		return args, fmt.Errorf("decode %s arguments: %w", HotelToolName, err)
	}
	return args, nil
}

// hotelTool binds the searcher to the itinerary under revision.
func hotelTool(s ports.HotelSearcher, it *domain.Itinerary) registry.ToolFunction {
	return func(ctx context.Context, raw map[string]any) (any, error) {
		args, err := decodeHotelArgs(raw)
		if err != nil {
			return nil, err
		}
		if args.Travelers < 1 {
			args.Travelers = 1
			if it != nil && it.Travelers > 0 {
				args.Travelers = it.Travelers
			}
		}
		return s.SearchHotels(ctx, ports.HotelQuery{Travelers: args.Travelers, Itinerary: it})
	}
}
