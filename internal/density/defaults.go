package density

import "github.com/ndastur/TiCons-CLI/internal/domain"

// 内置注册表：Alloy 工程的 app/assets 布局，相对 output_dir。
var defaultSpecs = []domain.DensitySpec{
	{Name: "android-res-ldpi", Output: "app/assets/android/images/res-ldpi/", DPI: 120},
	{Name: "android-res-mdpi", Output: "app/assets/android/images/res-mdpi/", DPI: 160},
	{Name: "android-res-hdpi", Output: "app/assets/android/images/res-hdpi/", DPI: 240},
	{Name: "android-res-xhdpi", Output: "app/assets/android/images/res-xhdpi/", DPI: 320},
	{Name: "android-res-xxhdpi", Output: "app/assets/android/images/res-xxhdpi/", DPI: 480},
	{Name: "android-res-xxxhdpi", Output: "app/assets/android/images/res-xxxhdpi/", DPI: 640},
	{Name: "ios-images", Output: "app/assets/iphone/images/", DPI: 160},
	{Name: "ios-images@2x", Output: "app/assets/iphone-retina/images/", DPI: 320},
	{Name: "mobileweb-images", Output: "app/assets/mobileweb/images/", DPI: 160},
}

// KnownPlatforms 是内置注册表覆盖的平台名。
var KnownPlatforms = []string{"android", "ios", "mobileweb"}

// Default 返回内置注册表（output 仍为相对路径，需要 Rooted 后使用）。
func Default() Registry {
	r, err := NewRegistry(defaultSpecs...)
	if err != nil {
		panic(err)
	}
	return r
}
