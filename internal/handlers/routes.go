package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Check: deps.Health}
	users := UserHandler{Users: deps.Users, Expander: deps.Expander, Limiter: deps.Limiter}
	friends := FriendHandler{Friends: deps.Friends, Expander: deps.Expander, Limiter: deps.Limiter}
	reviews := ReviewHandler{Reviews: deps.Reviews, Expander: deps.Expander, Limiter: deps.Limiter}
	samples := SampleHandler{Samples: deps.Samples, Limiter: deps.Limiter}
	bands := BandHandler{Bands: deps.Bands, Expander: deps.Expander, Limiter: deps.Limiter}

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/api/v1/users", users.Collection)
	mux.HandleFunc("/api/v1/profile", users.Profile)
	mux.HandleFunc("/api/v1/profile/update", users.UpdateProfile)
	mux.HandleFunc("/api/v1/profile/delete", users.DeleteProfile)

	mux.HandleFunc("/api/v1/friends", friends.List)
	mux.HandleFunc("/api/v1/friends/requests", friends.Requests)
	mux.HandleFunc("/api/v1/friends/status", friends.Status)
	mux.HandleFunc("/api/v1/friends/request", friends.Send)
	mux.HandleFunc("/api/v1/friends/request/remove", friends.Withdraw)
	mux.HandleFunc("/api/v1/friends/accept", friends.Accept)
	mux.HandleFunc("/api/v1/friends/decline", friends.Decline)
	mux.HandleFunc("/api/v1/friends/remove", friends.Remove)

	mux.HandleFunc("/api/v1/reviews", reviews.Collection)
	mux.HandleFunc("/api/v1/reviews/delete", reviews.Delete)

	mux.HandleFunc("/api/v1/samples", samples.Create)
	mux.HandleFunc("/api/v1/samples/delete", samples.Delete)

	mux.HandleFunc("/api/v1/bands", bands.Collection)
	mux.HandleFunc("/api/v1/bands/join", bands.Join)
	mux.HandleFunc("/api/v1/bands/leave", bands.Leave)
	mux.HandleFunc("/api/v1/bands/delete", bands.Delete)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users    UserService
	Friends  FriendService
	Reviews  ReviewService
	Samples  SampleService
	Bands    BandService
	Expander Expander
	Limiter  RateLimiter
	Health   HealthCheck
}
