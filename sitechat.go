// Package sitechat ingests a bounded website, turns its pages into
// embedded text fragments, and retrieves the fragments most relevant to a
// natural-language question.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, gemini/, goquery/) or after
// the pipeline stage they orchestrate (crawl/, embedding/, search/).
package sitechat
