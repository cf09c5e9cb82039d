package metadata

type ShaderStage uint8

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	if s == ShaderStageFragment {
		return "fragment"
	}
	return "vertex"
}

// ShaderCreateInfo describes one shader stage handed to the backend.
type ShaderCreateInfo struct {
	Stage      ShaderStage
	Code       []byte
	EntryPoint string
	// IncludeDir is where the backend resolves #include directives, when it compiles sources itself.
	IncludeDir        string
	NumUniformBuffers uint32
	NumSamplers       uint32
}

// MaxUniformBuffers per shader stage.
const MaxUniformBuffers = 8

// MaxSamplers per shader stage.
const MaxSamplers = 16
