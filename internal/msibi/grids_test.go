package msibi

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("New", func() {
	var cfg Config

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		cfg = Config{
			RdfCutoff:     2.5,
			NRdfPoints:    151,
			StatusFile:    filepath.Join(dir, "f_fits.log"),
			PotentialsDir: filepath.Join(dir, "potentials"),
			RdfDir:        filepath.Join(dir, "rdfs"),
		}
	})

	It("derives the grids from the rdf discretization", func() {
		m, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(m.Dr).To(BeNumerically("~", 2.5/150.0, 1e-15))
		Expect(m.RdfRRange[0]).To(BeZero())
		Expect(m.RdfRRange[1]).To(BeNumerically("~", 2.5+2.5/150.0, 1e-12))
		Expect(m.RdfNBins).To(Equal(152))
		Expect(m.PotR).To(HaveLen(151))
		Expect(m.PotR[0]).To(BeZero())
		Expect(m.PotR[150]).To(BeNumerically("~", 2.5, 1e-12))
	})

	It("defaults r_switch to the fifth-from-last grid point", func() {
		m, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(m.RSwitch).To(BeNumerically("~", 14.6/6.0, 1e-12))
		Expect(m.RSwitch).To(Equal(m.PotR[len(m.PotR)-5]))
	})

	It("keeps an explicit r_switch", func() {
		cfg.RSwitch = 2.1
		m, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(m.RSwitch).To(Equal(2.1))
	})

	It("tabulates the potential on its own shorter cutoff", func() {
		cfg.PotCutoff = 2.0
		m, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(m.PotR).To(HaveLen(121))
		Expect(m.PotR[120]).To(BeNumerically("~", 2.0, 1e-12))
		Expect(m.RSwitch).To(BeNumerically("~", 11.6/6.0, 1e-12))
		// The rdf grid is unaffected by the potential cutoff.
		Expect(m.RdfNBins).To(Equal(152))
	})

	It("defaults the potential cutoff to the rdf cutoff", func() {
		m, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(m.PotCutoff).To(Equal(m.RdfCutoff))
	})

	It("rejects a non-positive cutoff", func() {
		cfg.RdfCutoff = 0
		_, err := New(cfg)
		Expect(err).To(MatchError(ContainSubstring("cutoff")))
	})

	It("rejects a degenerate grid", func() {
		cfg.NRdfPoints = 1
		_, err := New(cfg)
		Expect(err).To(MatchError(ContainSubstring("rdf point")))
	})

	It("creates the status log at construction", func() {
		m, err := New(cfg)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(cfg.StatusFile).To(BeAnExistingFile())
	})
})
