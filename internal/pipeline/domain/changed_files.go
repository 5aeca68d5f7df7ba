package domain

// DescriptorsChanged reports whether any of the changed file paths touches
// the workflow's descriptor inputs. It decides whether a pull request report
// should include a descriptor diff section.
func DescriptorsChanged(changed []string, paths DescriptorPaths) bool {
	for _, f := range changed {
		if f == paths.Base || f == paths.Extra {
			return true
		}
	}
	return false
}
