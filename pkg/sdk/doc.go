// Package strata provides a Go client for the strata retrieval strategy
// service: typed access to the /retrieval-strategies resource and search
// execution.
//
//	client := strata.New("http://localhost:8080", strata.WithAPIKey("secret"))
//	strat, _ := client.GetDefaultStrategy(ctx)
//	resp, _ := client.Search(ctx, strata.SearchRequest{Query: "how to configure tls"})
//
// GetDefaultStrategy never leaves the caller unconfigured: when the service
// is unreachable or reports an error, it returns the built-in default
// strategy instead of failing.
package strata
