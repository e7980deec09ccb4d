package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// silenceFloorDB is the RMS level below which a block is treated as silent.
const silenceFloorDB = -60.0

// BandEnergy holds per-band RMS energy in dBFS. Band edges follow the
// seven-band split used throughout the analysis pipeline.
type BandEnergy struct {
	SubBass  float64 // 20–80 Hz
	Bass     float64 // 80–250 Hz
	LowMid   float64 // 250–500 Hz
	Mid      float64 // 500–2k Hz
	UpperMid float64 // 2k–6k Hz
	Presence float64 // 6k–10k Hz
	Air      float64 // 10k–20k Hz
}

// Result is the spectral analysis of one block of samples. It is a pure
// value: safe to copy between goroutines.
type Result struct {
	Bands            BandEnergy
	SpectralCentroid float64 // Hz
	DominantFreqHz   float64 // Hz
	RmsDB            float64
	PeakDB           float64
	CrestFactor      float64 // peak - rms in dB
	HasSignal        bool
}

// emptyResult is the all-default value returned for short or silent blocks.
func emptyResult() Result {
	return Result{
		Bands: BandEnergy{
			SubBass: -96, Bass: -96, LowMid: -96, Mid: -96,
			UpperMid: -96, Presence: -96, Air: -96,
		},
		RmsDB:  -96,
		PeakDB: -96,
	}
}

// Analyser performs windowed spectral analysis on fixed-size sample blocks.
// The transform itself comes from gonum's real FFT; the analyser owns the
// Hann window, band integration, centroid and dominant-bin extraction.
//
// One Analyser is used from a single goroutine (the DSP loop); the work
// buffers, the magnitude slice included, are allocated once in NewAnalyser
// and reused across calls.
type Analyser struct {
	fftSize int
	fft     *fourier.FFT
	window  []float64
	timeBuf []float64
	coeff   []complex128
	mag     []float64
}

// NewAnalyser creates an analyser for blocks of fftSize samples.
// fftSize must be a power of two; the default used across the system is 1024.
func NewAnalyser(fftSize int) *Analyser {
	a := &Analyser{
		fftSize: fftSize,
		fft:     fourier.NewFFT(fftSize),
		window:  make([]float64, fftSize),
		timeBuf: make([]float64, fftSize),
		coeff:   make([]complex128, fftSize/2+1),
		mag:     make([]float64, fftSize/2),
	}
	for i := range a.window {
		a.window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(fftSize-1)))
	}
	return a
}

// FFTSize returns the configured block size.
func (a *Analyser) FFTSize() int { return a.fftSize }

// Analyse computes the spectral result for one block of samples.
// Blocks shorter than the FFT size, or quieter than the silence floor,
// produce an all-default result with HasSignal false.
func (a *Analyser) Analyse(samples []float32, sampleRate float64) Result {
	r := emptyResult()

	if len(samples) < a.fftSize || sampleRate <= 0 {
		return r
	}

	// Time-domain RMS and peak over the whole block
	var sumSq, peak float64
	for _, s := range samples {
		f := float64(s)
		sumSq += f * f
		if af := math.Abs(f); af > peak {
			peak = af
		}
	}
	rms := math.Sqrt(sumSq / float64(len(samples)))
	r.RmsDB = toDBFS(rms)
	r.PeakDB = toDBFS(peak)
	r.CrestFactor = r.PeakDB - r.RmsDB
	r.HasSignal = r.RmsDB > silenceFloorDB

	if !r.HasSignal {
		return emptyResult()
	}

	// Window and transform the first fftSize samples
	for i := 0; i < a.fftSize; i++ {
		a.timeBuf[i] = float64(samples[i]) * a.window[i]
	}
	a.fft.Coefficients(a.coeff, a.timeBuf)

	halfN := a.fftSize / 2
	binWidth := sampleRate / float64(a.fftSize)
	scale := 1.0 / float64(halfN)
	for i := 0; i < halfN; i++ {
		a.mag[i] = cmplxAbs(a.coeff[i]) * scale
	}

	r.Bands.SubBass = a.bandEnergyDB(binWidth, 20, 80)
	r.Bands.Bass = a.bandEnergyDB(binWidth, 80, 250)
	r.Bands.LowMid = a.bandEnergyDB(binWidth, 250, 500)
	r.Bands.Mid = a.bandEnergyDB(binWidth, 500, 2000)
	r.Bands.UpperMid = a.bandEnergyDB(binWidth, 2000, 6000)
	r.Bands.Presence = a.bandEnergyDB(binWidth, 6000, 10000)
	r.Bands.Air = a.bandEnergyDB(binWidth, 10000, sampleRate/2)

	// Spectral centroid and dominant bin, skipping DC
	var weightedSum, totalMag float64
	peakBin, peakMag := 0, 0.0
	for i := 1; i < halfN; i++ {
		freq := float64(i) * binWidth
		weightedSum += freq * a.mag[i]
		totalMag += a.mag[i]
		if a.mag[i] > peakMag {
			peakMag = a.mag[i]
			peakBin = i
		}
	}
	if totalMag > 1e-12 {
		r.SpectralCentroid = weightedSum / totalMag
	}
	r.DominantFreqHz = float64(peakBin) * binWidth

	return r
}

func (a *Analyser) bandEnergyDB(binWidth, loHz, hiHz float64) float64 {
	loBin := int(loHz / binWidth)
	if loBin < 1 {
		loBin = 1
	}
	hiBin := int(hiHz / binWidth)
	if hiBin > len(a.mag)-1 {
		hiBin = len(a.mag) - 1
	}
	if loBin > hiBin {
		return -96
	}

	var sumSq float64
	for i := loBin; i <= hiBin; i++ {
		sumSq += a.mag[i] * a.mag[i]
	}
	rms := math.Sqrt(sumSq / float64(hiBin-loBin+1))
	return toDBFS(rms)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func toDBFS(linear float64) float64 {
	if linear < 1e-10 {
		return -96
	}
	return 20.0 * math.Log10(linear)
}
