// Package resilience holds the fault tolerance patterns the pipeline leans
// on: retry with exponential backoff and jitter for feed and LLM calls, and
// circuit breakers around the database, the inference backend, and Telegram.
//
// Usage:
//
//	cb := circuitbreaker.New(circuitbreaker.LLMAPIConfig())
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return client.CreateChatCompletion(ctx, req)
//	})
//
//	err := retry.WithBackoff(ctx, retry.FeedFetchConfig(), func() error {
//	    return fetchFeed(ctx, url)
//	})
package resilience
