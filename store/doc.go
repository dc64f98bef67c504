// Package store keeps application packages on a filesystem and fetches them
// over HTTP.
//
// Packages are verified before they are stored, so everything a Store returns
// has a valid header and checksum at the time it was written:
//
//	s, err := store.Open("apps")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d := store.NewDownloader(store.WithDownloadLimit(512 * 1024))
//	entry, err := d.DownloadToStore(ctx, "https://example.com/hello.bin", "hello", s)
package store
