// Package provider defines the contract every AI service adapter
// implements and the machinery that drives adapters.
//
// Adapters live in sub-packages (provider/openai, provider/dream, ...) and
// implement some of Summarizer, ImageGenerator, Tester and Describer. The
// Registry holds them under the closed Name enum.
//
// A Runner drives one ImageGenerator through its styles. Each style is one
// retry-wrapped call; the resulting Batch goes to an Acquirer:
//
//	runner := provider.NewRunner(gen, attempter, acquirer,
//	    provider.WithMiddleware(
//	        provider.WithLogging[provider.ImageRequest, []provider.GeneratedImage](log),
//	        provider.WithTracing[provider.ImageRequest, []provider.GeneratedImage]("phrame"),
//	    ),
//	)
//	saved := runner.Generate(ctx, summaryID, summary)
//
// Task based adapters use Poll to wait for a remote job.
package provider
