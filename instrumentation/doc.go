// Package instrumentation provides OpenTelemetry meters and tracers
// for the token lifecycle manager, the role cache resolver, and the
// Helix API binding.
//
// Instrumentation is optional: when disabled (or when no instance is
// supplied at all) no-op providers are used and recording has zero
// overhead. Components accept a *Instrumentation and tolerate nil.
//
// Usage:
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "helixd",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	inst.Metrics().TokenRefreshed.Add(ctx, 1,
//		metric.WithAttributes(attribute.String(AttrOutcome, "success")))
//
// Never record credential material (access tokens, refresh tokens,
// authorization codes, the client secret) as attribute values. Record
// metadata only: principal ids, scope names, outcomes, durations.
package instrumentation
