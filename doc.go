// Package backend provides the Vlogbook API server.
//
// The entry points live under cmd/:
//
//   - cmd/server: the HTTP API
//   - cmd/cli: operator commands (migrate, seed, recount, unblock, delete-user)
//
// The rest is organized into internal packages:
//
//   - internal/handlers: HTTP request handlers for all API endpoints
//   - internal/models: Data models and database schemas
//   - internal/auth: Accounts, JWT tokens and password reset codes
//   - internal/repository: Users plus the block and follow edges between them
//   - internal/visibility: The block wall applied to every read
//   - internal/engagement: Likes, comments, hides and their counters
//   - internal/content: Posts and videos
//   - internal/profile: Profile views with relationship and content counts
//   - internal/media: Video probing, thumbnails and upload limits
//   - internal/storage: Media storage on S3 or local disk
//   - internal/email: Password reset mail over SES, SendGrid or the log
//   - internal/database: Database connection and migrations
//   - internal/middleware: Request ids, logging, metrics, tracing, rate limiting
//   - internal/container: Service wiring shared by the server and the CLI
//   - internal/seed: Fake data for development
//
// See the individual package documentation for detailed API reference.
package backend
