package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/maproute/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the session service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"northeast": &graphql.Field{Type: geoPointType},
			"southwest": &graphql.Field{Type: geoPointType},
		},
	})

	cameraType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Camera",
		Fields: graphql.Fields{
			"center":      &graphql.Field{Type: geoPointType},
			"zoom":        &graphql.Field{Type: graphql.Float},
			"duration_ms": &graphql.Field{Type: graphql.Int},
		},
	})

	routeSummaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteSummary",
		Fields: graphql.Fields{
			"point_count":      &graphql.Field{Type: graphql.Int},
			"bounds":           &graphql.Field{Type: boundsType},
			"distance_meters":  &graphql.Field{Type: graphql.Int},
			"duration_seconds": &graphql.Field{Type: graphql.Int},
			"summary":          &graphql.Field{Type: graphql.String},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"phase":       &graphql.Field{Type: graphql.String},
			"origin":      &graphql.Field{Type: geoPointType},
			"destination": &graphql.Field{Type: geoPointType},
			"seq": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(*domain.SessionSnapshot); ok {
						return int(s.Seq), nil
					}
					return nil, nil
				},
			},
			"fetching":   &graphql.Field{Type: graphql.Boolean},
			"route":      &graphql.Field{Type: routeSummaryType},
			"camera":     &graphql.Field{Type: cameraType},
			"created_at": &graphql.Field{Type: graphql.DateTime},
			"updated_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	routeRowType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteRow",
		Fields: graphql.Fields{
			"index": &graphql.Field{Type: graphql.Int},
			"key":   &graphql.Field{Type: graphql.String},
			"start": &graphql.Field{Type: graphql.Float},
			"size":  &graphql.Field{Type: graphql.Float},
			"lat":   &graphql.Field{Type: graphql.Float},
			"lng":   &graphql.Field{Type: graphql.Float},
			"label": &graphql.Field{Type: graphql.String},
		},
	})

	routeWindowType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteWindow",
		Fields: graphql.Fields{
			"count":         &graphql.Field{Type: graphql.Int},
			"total_size":    &graphql.Field{Type: graphql.Float},
			"scroll_offset": &graphql.Field{Type: graphql.Float},
			"viewport":      &graphql.Field{Type: graphql.Float},
			"start_index":   &graphql.Field{Type: graphql.Int},
			"end_index":     &graphql.Field{Type: graphql.Int},
			"rows":          &graphql.Field{Type: graphql.NewList(routeRowType)},
		},
	})

	toastType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Toast",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"kind":       &graphql.Field{Type: graphql.String},
			"message":    &graphql.Field{Type: graphql.String},
			"icon":       &graphql.Field{Type: graphql.String},
			"created_at": &graphql.Field{Type: graphql.DateTime},
			"expires_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Current state of a map session",
				Args:        idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Get(p.Context, p.Args["id"].(string))
				},
			},
			"routeWindow": &graphql.Field{
				Type:        routeWindowType,
				Description: "Visible rows of the route point list",
				Args: graphql.FieldConfigArgument{
					"id":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"scroll":   &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"viewport": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					scroll, _ := p.Args["scroll"].(float64)
					viewport, _ := p.Args["viewport"].(float64)
					return deps.Sessions.RouteWindow(p.Context, p.Args["id"].(string), scroll, viewport)
				},
			},
			"toasts": &graphql.Field{
				Type:        graphql.NewList(toastType),
				Description: "Visible toast notifications of a session",
				Args:        idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Toasts(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createSession": &graphql.Field{
				Type: sessionType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Create(p.Context), nil
				},
			},
			"click": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					return deps.Sessions.Click(p.Context, p.Args["id"].(string), pt)
				},
			},
			"swap": &graphql.Field{
				Type: sessionType,
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Swap(p.Context, p.Args["id"].(string))
				},
			},
			"reset": &graphql.Field{
				Type: sessionType,
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Reset(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
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
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
