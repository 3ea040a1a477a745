package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

const viewerKey ctxKey = "viewer_id"

func gqlViewer(ctx context.Context) string {
	v, _ := ctx.Value(viewerKey).(string)
	return v
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"north": &graphql.Field{Type: graphql.Float},
			"south": &graphql.Field{Type: graphql.Float},
			"east":  &graphql.Field{Type: graphql.Float},
			"west":  &graphql.Field{Type: graphql.Float},
		},
	})

	memoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Memory",
		Fields: graphql.Fields{
			"memory_id":         &graphql.Field{Type: graphql.String},
			"creator_id":        &graphql.Field{Type: graphql.String},
			"creator_username":  &graphql.Field{Type: graphql.String},
			"title":             &graphql.Field{Type: graphql.String},
			"description":       &graphql.Field{Type: graphql.String},
			"content_type":      &graphql.Field{Type: graphql.String},
			"location":          &graphql.Field{Type: geoPointType},
			"location_name":     &graphql.Field{Type: graphql.String},
			"privacy_level":     &graphql.Field{Type: graphql.String},
			"likes_count":       &graphql.Field{Type: graphql.Int},
			"comments_count":    &graphql.Field{Type: graphql.Int},
			"discoveries_count": &graphql.Field{Type: graphql.Int},
			"created_at":        &graphql.Field{Type: graphql.DateTime},
			"distance_meters":   &graphql.Field{Type: graphql.Float},
		},
	})

	heatmapCellType := graphql.NewObject(graphql.ObjectConfig{
		Name: "HeatmapCell",
		Fields: graphql.Fields{
			"center":    &graphql.Field{Type: geoPointType},
			"bounds":    &graphql.Field{Type: boundsType},
			"intensity": &graphql.Field{Type: graphql.Int},
		},
	})

	popularAreaType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PopularArea",
		Fields: graphql.Fields{
			"center":           &graphql.Field{Type: geoPointType},
			"memory_count":     &graphql.Field{Type: graphql.Int},
			"total_engagement": &graphql.Field{Type: graphql.Int},
			"sample_memories":  &graphql.Field{Type: graphql.NewList(memoryType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"memoriesNearby": &graphql.Field{
				Type:        graphql.NewList(memoryType),
				Description: "Find memories near a location, nearest first",
				Args: graphql.FieldConfigArgument{
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius":    &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := domain.GeoPoint{
						Lat: p.Args["latitude"].(float64),
						Lon: p.Args["longitude"].(float64),
					}
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Proximity.FindNearby(p.Context, center, radius, limit,
						gqlViewer(p.Context), domain.DiscoveryFilter{})
				},
			},
			"memory": &graphql.Field{
				Type:        memoryType,
				Description: "Get a memory by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Memories.Get(p.Context, p.Args["id"].(string), gqlViewer(p.Context))
				},
			},
			"heatmap": &graphql.Field{
				Type:        graphql.NewList(heatmapCellType),
				Description: "Density grid of public memories over a bounding box",
				Args: graphql.FieldConfigArgument{
					"north":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"south":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"east":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"west":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"grid_size": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					bounds := domain.Bounds{
						North: p.Args["north"].(float64),
						South: p.Args["south"].(float64),
						East:  p.Args["east"].(float64),
						West:  p.Args["west"].(float64),
					}
					return deps.Proximity.Heatmap(p.Context, bounds, p.Args["grid_size"].(int))
				},
			},
			"popularAreas": &graphql.Field{
				Type:        graphql.NewList(popularAreaType),
				Description: "Engagement clusters around a location",
				Args: graphql.FieldConfigArgument{
					"latitude":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius":      &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 2000.0},
					"min_cluster": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"max_areas":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := domain.GeoPoint{
						Lat: p.Args["latitude"].(float64),
						Lon: p.Args["longitude"].(float64),
					}
					return deps.Proximity.PopularAreas(p.Context, center,
						p.Args["radius"].(float64), p.Args["min_cluster"].(int),
						p.Args["max_areas"].(int))
				},
			},
			"distance": &graphql.Field{
				Type:        graphql.Float,
				Description: "Great-circle distance in meters between two points",
				Args: graphql.FieldConfigArgument{
					"from_latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"from_longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"to_latitude":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"to_longitude":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Proximity.Distance(
						domain.GeoPoint{Lat: p.Args["from_latitude"].(float64), Lon: p.Args["from_longitude"].(float64)},
						domain.GeoPoint{Lat: p.Args["to_latitude"].(float64), Lon: p.Args["to_longitude"].(float64)},
					)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		ctx := context.WithValue(c.Context(), viewerKey, viewerID(c))
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})

		return c.JSON(result)
	}
}
