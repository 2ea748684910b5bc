// Package bitbucket provides types, interfaces, and helpers for working with
// the two Bitbucket REST dialects (Cloud and Data Center) behind one client.
//
// # Overview
//
// The package defines the platform variant, the path resolver that maps
// logical operations onto each dialect's wire paths, the pagination engine
// that abstracts cursor-style (Cloud) and offset-style (Data Center)
// continuation, the classified error taxonomy, and the interfaces for the
// resource-oriented clients (RepositoriesClient, PullRequestsClient, ...).
// A concrete implementation is provided by internal/client, wired up through
// the bbclient package.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/forgebridge/bitbucket-mcp/pkg/bbclient"
//	  "github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := bbclient.New(&bitbucket.Config{
//	    BaseURL:   "https://bitbucket.org",
//	    AuthToken: "token",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  prs, err := cli.PullRequests().List(ctx, "myteam", "myrepo", "OPEN", nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = prs
//	}
//
// # Pagination
//
// List operations take ListOptions. An explicit Page fetches exactly that
// page; All accumulates across continuations up to FetchAllLimit items. The
// raw engine (FetchPage, FetchAll) is exposed for callers that work with
// unparsed items.
//
// # Errors
//
// Every failed call returns a *Error carrying an ErrorKind. Helpers such as
// IsNotFound, IsAuthentication, and IsConflict make it easy to branch on the
// common cases without inspecting statuses or messages.
package bitbucket
