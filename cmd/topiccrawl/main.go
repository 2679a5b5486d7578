// Package main provides the entry point for the topiccrawl CLI.
//
// topiccrawl crawls websites to a bounded link depth, classifies the text of
// every page into a topic and keeps the crawl frontier in a database so that
// an interrupted crawl resumes where it stopped.
//
// Usage:
//
//	topiccrawl scrape https://example.com
//	topiccrawl results https://example.com --format markdown
//	topiccrawl serve --addr 127.0.0.1:8000
//
// See --help for all available options.
package main

// main is the entry point for topiccrawl.
func main() {
	Execute()
}
