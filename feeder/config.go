package feeder

import (
	"github.com/quantumrand/entropyd/config"
)

// Config option getters, set during prep.
var (
	bufferCapacity  config.IntOption
	correctionName  config.StringOption
	harvestMaxBytes config.IntOption

	devicePath     config.StringOption
	deviceInfoPath config.StringOption
	statusPath     config.StringOption
	minFirmware    config.StringOption

	systemCipher       config.StringOption
	reseedAfterSeconds config.IntOption
	reseedAfterBytes   config.IntOption

	reservePath       config.StringOption
	reserveLowWater   config.IntOption
	sampleBytes       config.IntOption
	qualityInterval   config.IntOption
	chiSquareLimit    config.FloatOption
	autocorrLimit     config.FloatOption
	failedWindows     config.IntOption
	retryBudget       config.IntOption
	recoveryInterval  config.IntOption
	environmentChecks config.BoolOption
)

type optionSpec struct {
	option *config.Option
	bind   func()
}

func registerConfig() error {
	specs := []optionSpec{
		{&config.Option{
			Name:            "Buffer Capacity",
			Key:             "core/bufferCapacity",
			Description:     "Capacity of the corrected-entropy ring buffer, in bytes.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			DefaultValue:    16 * 1024 * 1024,
			ValidationRegex: "^[1-9][0-9]{2,9}$",
		}, func() { bufferCapacity = config.GetAsInt("core/bufferCapacity", 16*1024*1024) }},
		{&config.Option{
			Name:            "Bias Correction",
			Key:             "core/correction",
			Description:     "Bias correction algorithm applied to harvested bytes before buffering.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			DefaultValue:    "vonneumann",
			ValidationRegex: "^(none|vonneumann|matrix)$",
		}, func() { correctionName = config.GetAsString("core/correction", "vonneumann") }},
		{&config.Option{
			Name:            "Harvest Max Bytes",
			Key:             "core/harvestMaxBytes",
			Description:     "Upper bound for a single harvest read.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			DefaultValue:    65536,
			ValidationRegex: "^[1-9][0-9]{1,6}$",
		}, func() { harvestMaxBytes = config.GetAsInt("core/harvestMaxBytes", 65536) }},
		{&config.Option{
			Name:           "Device Path",
			Key:            "device/path",
			Description:    "Character device node of the quantum noise source.",
			OptType:        config.OptTypeString,
			ExpertiseLevel: config.ExpertiseLevelUser,
			DefaultValue:   "/dev/qrandom0",
		}, func() { devicePath = config.GetAsString("device/path", "/dev/qrandom0") }},
		{&config.Option{
			Name:           "Device Info Path",
			Key:            "device/infoPath",
			Description:    "Directory with the device's product, serial and version files.",
			OptType:        config.OptTypeString,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			DefaultValue:   "/sys/class/qrandom/qrandom0",
		}, func() { deviceInfoPath = config.GetAsString("device/infoPath", "/sys/class/qrandom/qrandom0") }},
		{&config.Option{
			Name:           "Device Status Path",
			Key:            "device/statusPath",
			Description:    "JSON status frame with the device's environmental readings.",
			OptType:        config.OptTypeString,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			DefaultValue:   "/sys/class/qrandom/qrandom0/status",
		}, func() { statusPath = config.GetAsString("device/statusPath", "/sys/class/qrandom/qrandom0/status") }},
		{&config.Option{
			Name:           "Minimum Firmware",
			Key:            "device/minFirmware",
			Description:    "Lowest accepted device firmware version.",
			OptType:        config.OptTypeString,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			DefaultValue:   "1.0",
		}, func() { minFirmware = config.GetAsString("device/minFirmware", "1.0") }},
		{&config.Option{
			Name:            "Fallback RNG Cipher",
			Key:             "system/cipher",
			Description:     "Cipher to use for the Fortuna fallback generator.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			DefaultValue:    "aes",
			ValidationRegex: "^(aes|serpent)$",
		}, func() { systemCipher = config.GetAsString("system/cipher", "aes") }},
		{&config.Option{
			Name:            "Reseed After Seconds",
			Key:             "system/reseedAfterSeconds",
			Description:     "Seconds until the fallback generator reseeds from the os.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			DefaultValue:    360,
			ValidationRegex: "^[1-9][0-9]{0,5}$",
		}, func() { reseedAfterSeconds = config.GetAsInt("system/reseedAfterSeconds", 360) }},
		{&config.Option{
			Name:            "Reseed After Bytes",
			Key:             "system/reseedAfterBytes",
			Description:     "Output volume until the fallback generator reseeds from the os.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			DefaultValue:    1000000,
			ValidationRegex: "^[1-9][0-9]{2,9}$",
		}, func() { reseedAfterBytes = config.GetAsInt("system/reseedAfterBytes", 1000000) }},
		{&config.Option{
			Name:           "Emergency Reserve Path",
			Key:            "emergency/reservePath",
			Description:    "Path of the pre-generated emergency reserve file. Empty disables the reserve.",
			OptType:        config.OptTypeString,
			ExpertiseLevel: config.ExpertiseLevelUser,
			DefaultValue:   "",
		}, func() { reservePath = config.GetAsString("emergency/reservePath", "") }},
		{&config.Option{
			Name:            "Reserve Low-Water Mark",
			Key:             "emergency/lowWaterBytes",
			Description:     "Remaining reserve bytes below which an operator alert is raised.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			DefaultValue:    65536,
			ValidationRegex: "^[1-9][0-9]{0,9}$",
		}, func() { reserveLowWater = config.GetAsInt("emergency/lowWaterBytes", 65536) }},
		{&config.Option{
			Name:            "Quality Sample Bytes",
			Key:             "quality/sampleBytes",
			Description:     "Window size for the statistical quality tests.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			DefaultValue:    4096,
			ValidationRegex: "^[1-9][0-9]{2,6}$",
		}, func() { sampleBytes = config.GetAsInt("quality/sampleBytes", 4096) }},
		{&config.Option{
			Name:            "Quality Interval Seconds",
			Key:             "quality/intervalSeconds",
			Description:     "Cadence of the quality monitor.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			DefaultValue:    10,
			ValidationRegex: "^[1-9][0-9]{0,3}$",
		}, func() { qualityInterval = config.GetAsInt("quality/intervalSeconds", 10) }},
		{&config.Option{
			Name:           "Chi-Square Threshold",
			Key:            "quality/chiSquareThreshold",
			Description:    "Chi-square statistic above which a quality window fails.",
			OptType:        config.OptTypeFloat,
			ExpertiseLevel: config.ExpertiseLevelDeveloper,
			DefaultValue:   330.0,
		}, func() { chiSquareLimit = config.GetAsFloat("quality/chiSquareThreshold", 330.0) }},
		{&config.Option{
			Name:           "Autocorrelation Limit",
			Key:            "quality/autocorrelationLimit",
			Description:    "Absolute lag-1 autocorrelation above which a quality window fails.",
			OptType:        config.OptTypeFloat,
			ExpertiseLevel: config.ExpertiseLevelDeveloper,
			DefaultValue:   0.05,
		}, func() { autocorrLimit = config.GetAsFloat("quality/autocorrelationLimit", 0.05) }},
		{&config.Option{
			Name:            "Failed Windows Until Failed",
			Key:             "quality/failedWindows",
			Description:     "Consecutive failed quality windows after which the verdict becomes failed.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			DefaultValue:    3,
			ValidationRegex: "^[1-9][0-9]{0,2}$",
		}, func() { failedWindows = config.GetAsInt("quality/failedWindows", 3) }},
		{&config.Option{
			Name:            "Harvest Retry Budget",
			Key:             "selector/retryBudget",
			Description:     "Consecutive harvest failures after which the hardware source is abandoned.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			DefaultValue:    10,
			ValidationRegex: "^[1-9][0-9]{0,3}$",
		}, func() { retryBudget = config.GetAsInt("selector/retryBudget", 10) }},
		{&config.Option{
			Name:            "Recovery Interval Seconds",
			Key:             "selector/recoveryIntervalSeconds",
			Description:     "Cadence of the hardware recovery probe while a fallback source is active.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			DefaultValue:    60,
			ValidationRegex: "^[1-9][0-9]{0,4}$",
		}, func() { recoveryInterval = config.GetAsInt("selector/recoveryIntervalSeconds", 60) }},
		{&config.Option{
			Name:           "Environment Checks",
			Key:            "device/environmentChecks",
			Description:    "Poll the device's voltage, temperature and tamper signals.",
			OptType:        config.OptTypeBool,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			DefaultValue:   true,
		}, func() { environmentChecks = config.GetAsBool("device/environmentChecks", true) }},
	}

	for _, spec := range specs {
		if err := config.Register(spec.option); err != nil {
			return err
		}
		spec.bind()
	}
	return nil
}
