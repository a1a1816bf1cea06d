// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Collector")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "collector.log")

	viper.SetDefault("data.outputdir", "dataset")
	viper.SetDefault("data.layout", "flat")
	viper.SetDefault("data.image.format", "jpg")
	viper.SetDefault("data.image.quality", 95)

	viper.SetDefault("classes.pet", "states/pet.yaml")
	viper.SetDefault("classes.can", "states/can.yaml")
	viper.SetDefault("classes.foreign", "states/foreign.yaml")

	viper.SetDefault("export.csv.delimiter", ",")
	viper.SetDefault("export.csv.bom", true)
	viper.SetDefault("export.csv.includetimestamp", true)
	viper.SetDefault("export.csv.attrprefix", "")
	viper.SetDefault("export.csv.headerpolicy", "fixed")
	viper.SetDefault("export.csv.booltrue", "да")
	viper.SetDefault("export.csv.boolfalse", "нет")

	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "collector.db")
	viper.SetDefault("output.sqlite.debug", false)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "7860")

	viper.SetDefault("camera.source", "")
	viper.SetDefault("camera.width", 1280)
	viper.SetDefault("camera.height", 720)
	viper.SetDefault("camera.fps", 30)
}
