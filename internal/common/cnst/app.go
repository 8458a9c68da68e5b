package cnst

const (
	AppName     = "cleanbill"
	CommandName = "apiserver"
)

const (
	ApiServerYaml = "apiserver.yaml"
)
