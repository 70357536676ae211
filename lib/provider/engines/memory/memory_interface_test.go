package memory

import (
	"testing"

	"github.com/GalRogozinski/tangledb/lib/provider"
	providertesting "github.com/GalRogozinski/tangledb/lib/provider/testing"
)

func Test(t *testing.T) {
	providertesting.RunProviderTests(t, "Memory", func() provider.Provider {
		return New("memory-test", nil)
	})
}

func Benchmark(b *testing.B) {
	providertesting.RunProviderBenchmarks(b, "Memory", func() provider.Provider {
		return New("memory-test", &Options{Presize: 1024})
	})
}
