package domain

// DensitySpec 描述一个平台/分辨率桶：输出目录前缀 + 相对密度。
//
// Output 是字面量前缀（通常以路径分隔符结尾）；目标路径 = Output + 相对路径。
type DensitySpec struct {
	Name   string `json:"name"`
	Output string `json:"output"`
	DPI    int    `json:"dpi"`
}

// InputSpec 是被选为输入源的 DensitySpec。
type InputSpec struct {
	DensitySpec

	// OutputLength 是 Output 的字符长度：源文件路径去掉该长度前缀即为相对路径。
	OutputLength int
	// Retina 为 true 表示输入树是 @2x 变体，相对路径需要去掉 "@2x"。
	Retina bool
}

// RetinaSpecName 是唯一被视为 retina 输入的 spec 名称。
const RetinaSpecName = "ios-images@2x"

// NewInputSpec 由 DensitySpec 派生 InputSpec（计算 OutputLength/Retina）。
func NewInputSpec(s DensitySpec) InputSpec {
	return InputSpec{
		DensitySpec:  s,
		OutputLength: len(s.Output),
		Retina:       s.Name == RetinaSpecName,
	}
}
