// Package zhihu provides a client for the answer listing of the Zhihu web API.
//
// This package includes:
//   - PageBuilder and Page, which render listing requests with a fixed
//     parameter order
//   - Client.FetchPage, which sends the session's cookies and merges the
//     cookies the server sets back into the session
//   - Client.OpenImage for streaming avatar images
//   - Models for the listing response; answer records stay raw JSON
//
// Example usage:
//
//	state := session.New(cookieHeader, userAgent)
//	client := zhihu.NewClient(state, 30*time.Second, log)
//
//	builder := zhihu.NewPageBuilder(zhihu.BaseURL, "19550225", zhihu.DefaultPageSize)
//	page, err := client.FetchPage(ctx, builder.Build(0))
//	if err != nil {
//	    if errors.IsType(err, errors.ErrorTypeRateLimit) {
//	        // back off
//	    }
//	}
package zhihu
