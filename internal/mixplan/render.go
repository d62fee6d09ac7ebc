package mixplan

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/vividhyeok/mixpipeline/internal/compat"
)

func randHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}

// RenderPreview renders a short audio preview of one transition using an
// ffmpeg filter_complex graph, one graph per technique, adapted from the
// teacher's RenderPreview in renderer.go (re-keyed from the teacher's
// bass_swap/cut/filter_fade/mashup types to this system's
// crossfade/smooth_blend/quick_cut/beatmatch/creative techniques). This is
// a downstream consumer of a synthesised Transition, not itself required
// by the planner's invariants.
func RenderPreview(ffmpegPath, trackAPath, trackBPath string, tr Transition, cacheDir string) (string, error) {
	const margin = 10.0
	overlap := tr.TransitionDuration
	if overlap <= 0 {
		overlap = 10
	}

	aStart := tr.TransitionStart - margin
	if aStart < 0 {
		aStart = 0
	}
	aDur := margin + overlap
	bDur := overlap + margin
	delayMs := int(margin * 1000)
	fadeDur := overlap

	var filterComplex string
	switch tr.Technique {
	case compat.TechniqueQuickCut:
		filterComplex = fmt.Sprintf(
			"[0:a]atrim=0:%.2f[a];[1:a]anull[b];[a][b]concat=n=2:v=0:a=1[out]",
			margin,
		)
	case compat.TechniqueBeatmatch:
		filterComplex = fmt.Sprintf(
			"[0:a]afade=t=out:st=%.2f:d=%.2f[a];"+
				"[1:a]adelay=%d|%d,afade=t=in:d=%.2f[b];"+
				"[a][b]amix=inputs=2:duration=longest:normalize=0[out]",
			margin, fadeDur, delayMs, delayMs, fadeDur,
		)
	case compat.TechniqueCreative:
		filterComplex = fmt.Sprintf(
			"[0:a]lowpass=f=500,afade=t=out:st=%.2f:d=%.2f[a];"+
				"[1:a]highpass=f=300,adelay=%d|%d,afade=t=in:d=%.2f[b];"+
				"[a][b]amix=inputs=2:duration=longest:normalize=0[out]",
			margin, fadeDur, delayMs, delayMs, fadeDur,
		)
	case compat.TechniqueSmoothBlend:
		filterComplex = fmt.Sprintf(
			"[0:a]afade=t=out:st=%.2f:d=%.2f:curve=qsin[a];"+
				"[1:a]adelay=%d|%d,afade=t=in:d=%.2f:curve=qsin[b];"+
				"[a][b]amix=inputs=2:duration=longest:normalize=0[out]",
			margin, fadeDur, delayMs, delayMs, fadeDur,
		)
	default: // crossfade
		filterComplex = fmt.Sprintf(
			"[0:a]afade=t=out:st=%.2f:d=%.2f[a];"+
				"[1:a]adelay=%d|%d,afade=t=in:d=%.2f[b];"+
				"[a][b]amix=inputs=2:duration=longest:normalize=0[out]",
			margin, fadeDur, delayMs, delayMs, fadeDur,
		)
	}

	outputPath := filepath.Join(cacheDir, fmt.Sprintf("preview_%s_%d_%s.mp3",
		tr.Technique, int(tr.TransitionStart), randHex(4)))

	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.2f", aStart), "-t", fmt.Sprintf("%.2f", aDur), "-i", trackAPath,
		"-ss", "0", "-t", fmt.Sprintf("%.2f", bDur), "-i", trackBPath,
		"-filter_complex", filterComplex,
		"-map", "[out]",
		"-b:a", "192k",
		outputPath,
	}

	var stderr bytes.Buffer
	cmd := exec.Command(ffmpegPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg preview: %w\n%s", err, stderr.String())
	}
	return outputPath, nil
}
