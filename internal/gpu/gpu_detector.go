package gpu

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Device names understood by the speech engines.
const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// GPUDetector handles GPU detection and configuration
type GPUDetector struct {
	logger        *zap.Logger
	commandOutput func(name string, args ...string) ([]byte, error)
	getenv        func(key string) string
}

// GPUInfo contains information about available GPU devices
type GPUInfo struct {
	Available     bool
	DeviceCount   int
	DeviceName    string
	DriverVersion string
}

// NewGPUDetector creates a new GPU detector instance
func NewGPUDetector(logger *zap.Logger) *GPUDetector {
	return &GPUDetector{
		logger: logger,
		commandOutput: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
		getenv: os.Getenv,
	}
}

// DetectGPU detects available NVIDIA GPU devices. A machine without a GPU is
// not an error; the returned info simply reports Available=false.
func (g *GPUDetector) DetectGPU() *GPUInfo {
	gpuInfo := &GPUInfo{}

	// CUDA_VISIBLE_DEVICES=-1 hides every device
	if visible, ok := g.visibleDevices(); ok && visible == "" {
		g.logger.Debug("CUDA devices hidden by CUDA_VISIBLE_DEVICES")
		return gpuInfo
	}

	if err := g.detectWithNvidiaSMI(gpuInfo); err != nil {
		g.logger.Debug("nvidia-smi detection failed", zap.Error(err))
		if err := g.detectWithCUDAEnv(gpuInfo); err != nil {
			g.logger.Debug("CUDA environment detection failed", zap.Error(err))
		}
	}

	g.logger.Debug("GPU detection completed",
		zap.Bool("available", gpuInfo.Available),
		zap.Int("device_count", gpuInfo.DeviceCount),
		zap.String("device_name", gpuInfo.DeviceName))

	return gpuInfo
}

// ResolveDevice maps a configured device to a concrete one. "auto" becomes
// cuda when a GPU is detected and cpu otherwise.
func (g *GPUDetector) ResolveDevice(configured string) string {
	switch strings.ToLower(strings.TrimSpace(configured)) {
	case DeviceCPU:
		return DeviceCPU
	case DeviceCUDA:
		return DeviceCUDA
	}
	if g.DetectGPU().Available {
		return DeviceCUDA
	}
	return DeviceCPU
}

// detectWithNvidiaSMI attempts to detect GPU using nvidia-smi command
func (g *GPUDetector) detectWithNvidiaSMI(gpuInfo *GPUInfo) error {
	countOutput, err := g.commandOutput("nvidia-smi", "--list-gpus")
	if err != nil {
		return fmt.Errorf("nvidia-smi command failed: %w", err)
	}

	trimmed := strings.TrimSpace(string(countOutput))
	if trimmed == "" {
		return fmt.Errorf("no GPUs found by nvidia-smi")
	}
	deviceCount := len(strings.Split(trimmed, "\n"))

	infoOutput, err := g.commandOutput("nvidia-smi", "--query-gpu=name,driver_version", "--format=csv,noheader,nounits", "--id=0")
	if err != nil {
		return fmt.Errorf("nvidia-smi info query failed: %w", err)
	}

	firstLine, _, _ := strings.Cut(strings.TrimSpace(string(infoOutput)), "\n")
	parts := strings.Split(firstLine, ",")
	if len(parts) < 2 {
		return fmt.Errorf("unexpected nvidia-smi info format: %s", firstLine)
	}

	gpuInfo.DeviceCount = deviceCount
	gpuInfo.DeviceName = strings.TrimSpace(parts[0])
	gpuInfo.DriverVersion = strings.TrimSpace(parts[1])
	gpuInfo.Available = true

	return nil
}

// detectWithCUDAEnv attempts to detect GPU using CUDA_VISIBLE_DEVICES
func (g *GPUDetector) detectWithCUDAEnv(gpuInfo *GPUInfo) error {
	visible, ok := g.visibleDevices()
	if !ok {
		return fmt.Errorf("CUDA_VISIBLE_DEVICES not set")
	}

	devices := strings.Split(visible, ",")
	gpuInfo.DeviceCount = len(devices)
	gpuInfo.Available = gpuInfo.DeviceCount > 0
	return nil
}

// visibleDevices returns the CUDA_VISIBLE_DEVICES list and whether it was set.
// "-1" is normalized to the empty list.
func (g *GPUDetector) visibleDevices() (string, bool) {
	raw := g.getenv("CUDA_VISIBLE_DEVICES")
	if raw == "" {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "-1" {
		return "", true
	}
	return raw, true
}
