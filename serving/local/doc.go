// Package local implements serving.Serving on top of a model engine that
// runs alongside the pipeline.
//
// The engine is any langchaingo llms.Model. By default it is an ollama
// server holding the configured model. Sampling parameters are fixed at
// construction. A Fetcher can first materialize the model locally; when
// fetching fails the identifier is used as a local path.
package local
