// Package classifier assigns a topic label to page text.
//
// Classification is total: a Classifier never fails. Empty input, internal
// errors and unknown labels all degrade to model.DefaultTopic ("other").
//
// Two implementations are provided:
//   - Keyword: an offline scorer that counts keyword hits per label
//   - Remote: a client for a zero-shot classification HTTP endpoint
//
// Pool wraps either one with a bounded number of concurrent inferences and
// an asynchronous entry point for the concurrent crawler.
package classifier
