// Package builder assembles application packages from metadata and code
// blobs, and drives the per-application build over a source tree.
//
// Build is the pure step: metadata plus code plus entry offset in, a
// checksummed package out. Pipeline adds the filesystem side. It resolves
// metadata from <apps>/<app>/<app>_app.c, locates the compiled object under the
// build directory, extracts its code and writes <output>/<app>.bin atomically.
//
//	ex := extract.New(extract.Xtensa, extract.WithLogger(logger))
//	p := builder.NewPipeline(ex, builder.WithAppsDir("components/apps"))
//
//	report, err := p.BuildAll(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(report.Summary())
//
// BuildAll runs builds on a bounded worker pool. A failing application is
// recorded in Report.Skipped and the remaining applications still build.
package builder
