// Package testing provides standardised tests and benchmarks for
// provider implementations that satisfy the provider.Provider interface.
//
// The package contains:
//   - testing: A conformance suite for the Provider contract (round trips, idempotent
//     deletes, column isolation, clears, batch ordering and atomicity, scans,
//     lifecycle errors, concurrent access and snapshots)
//   - benchmark: Throughput of the operations the tangle issues, using
//     transaction-sized payloads and trytes keys
//
// Providers are opened with TestColumns. Tests that need an optional capability
// are skipped when the provider does not advertise the matching feature flag.
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() provider.Provider {
//		return NewMyProvider()
//	}
//
//	// Running the standard test suite
//	testing.RunProviderTests(t, "MyProvider", factory)
//
//	// Running performance benchmarks
//	testing.RunProviderBenchmarks(b, "MyProvider", factory)
package testing
