package embedding

import (
	"context"
	"math"
)

// Embedder はテキストをベクトルに変換する
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

// KoRatio はテキスト群に占めるハングル文字の割合を返す
func KoRatio(texts []string) float64 {
	total := 0
	kor := 0
	for _, t := range texts {
		for _, r := range t {
			total++
			if r >= '가' && r <= '힯' {
				kor++
			}
		}
	}
	if total <= 0 {
		return 0.0
	}
	return float64(kor) / float64(total)
}

// l2norm はベクトルをL2正規化する
func l2norm(vec []float32) []float32 {
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	s := math.Sqrt(sum) + 1e-12

	out := make([]float32, len(vec))
	for i, x := range vec {
		out[i] = float32(float64(x) / s)
	}
	return out
}
