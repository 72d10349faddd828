package moderation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func benchmarkWords(n int) []string {
	words := make([]string, 0, n)
	for i := 0; i < n; i++ {
		words = append(words, fmt.Sprintf("word%d", i))
	}
	return words
}

func BenchmarkModerator_Build(b *testing.B) {
	words := benchmarkWords(10_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := NewModerator(words, '*'); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkModerator_Censor(b *testing.B) {
	moderator, err := NewModerator(benchmarkWords(10_000), '*')
	require.NoError(b, err)
	text := strings.Repeat("hello word42 everyone, see you at word9999 ", 20)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = moderator.Censor(text)
	}
}

func BenchmarkSanitize(b *testing.B) {
	text := strings.Repeat(`<b>hi</b> <script>alert(1)</script> there `, 20)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Sanitize(text)
	}
}
