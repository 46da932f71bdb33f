package vecmath_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/driftwood-labs/memex/pkg/vecmath"
)

func TestVecmath(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "vecmath Suite")
}

var _ = Describe("Encode/Decode", func() {
	It("round-trips a vector through the byte encoding", func() {
		v := []float32{0.1, -0.2, 3.5, 0}
		decoded, err := vecmath.Decode(vecmath.Encode(v))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(HaveLen(len(v)))
		for i := range v {
			Expect(decoded[i]).To(BeNumerically("~", v[i], 0.0001))
		}
	})

	It("rejects a blob whose length isn't divisible by 4", func() {
		_, err := vecmath.Decode([]byte{1, 2, 3})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("CosineSimilarity", func() {
	It("is 1 for identical vectors", func() {
		v := []float32{1, 2, 3}
		Expect(vecmath.CosineSimilarity(v, v)).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("is 0 for orthogonal vectors", func() {
		Expect(vecmath.CosineSimilarity([]float32{1, 0}, []float32{0, 1})).To(BeNumerically("~", 0.0, 1e-9))
	})

	It("is 0, not negative, for opposite vectors", func() {
		Expect(vecmath.CosineSimilarity([]float32{1, 0}, []float32{-1, 0})).To(BeNumerically("~", 0.0, 1e-9))
	})

	It("treats mismatched dimensions as maximally dissimilar", func() {
		Expect(vecmath.CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})).To(Equal(0.0))
	})

	It("stays within [0,1] for arbitrary vectors", func() {
		sim := vecmath.CosineSimilarity([]float32{0.3, -0.7, 2.1}, []float32{-1.2, 0.4, 0.9})
		Expect(sim).To(BeNumerically(">=", 0))
		Expect(sim).To(BeNumerically("<=", 1))
	})
})
