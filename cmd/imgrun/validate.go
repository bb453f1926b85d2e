package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate job files for syntax and structure",
	Long: `Validate job files in the jobs directory for YAML syntax errors,
required fields, and structural correctness. This command checks:
- YAML syntax validity
- Required generate section with request url and prompt
- Header, query and response structure completeness`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		configPath := v.GetString("config")

		dir := strings.TrimSpace(v.GetString("jobs"))
		if dir == "" {
			doc, err := loadConfigDoc(cmd, configPath, false)
			if err != nil {
				fmt.Printf("Warning: failed to load config file '%s': %v\n", configPath, err)
				fmt.Println("Using default jobs directory...")
			} else if doc != nil {
				dir = strings.TrimSpace(doc.JobsDir)
			}
		}
		if dir == "" {
			dir = "./jobs"
		}

		// Normalize to absolute path
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}

		fmt.Printf("Validating job files in: %s\n", dir)

		results, err := validateJobFiles(dir)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		printValidationResults(results)

		if results.HasErrors() {
			return fmt.Errorf("validation completed with %d error(s)", results.ErrorCount())
		}

		fmt.Println("\nAll job files are valid!")
		return nil
	},
}

type ValidationResult struct {
	FileName string
	Errors   []string
	Warnings []string
}

type ValidationResults struct {
	Results []ValidationResult
}

func (vr *ValidationResults) HasErrors() bool {
	for _, result := range vr.Results {
		if len(result.Errors) > 0 {
			return true
		}
	}
	return false
}

func (vr *ValidationResults) ErrorCount() int {
	count := 0
	for _, result := range vr.Results {
		count += len(result.Errors)
	}
	return count
}

func validateJobFiles(dir string) (*ValidationResults, error) {
	results := &ValidationResults{}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("jobs directory does not exist: %s", dir)
	}

	jobFiles, err := findJobFiles(dir)
	if err != nil {
		return nil, err
	}

	if len(jobFiles) == 0 {
		fmt.Printf("No job files found in %s\n", dir)
		return results, nil
	}

	for _, file := range jobFiles {
		result := validateSingleFile(filepath.Join(dir, file))
		results.Results = append(results.Results, result)
	}

	return results, nil
}

func findJobFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := strings.ToLower(ent.Name())
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, ent.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

func validateSingleFile(filePath string) ValidationResult {
	result := ValidationResult{
		FileName: filepath.Base(filePath),
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var job map[string]interface{}
	if err := yaml.Unmarshal(content, &job); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid YAML syntax: %v", err))
		return result
	}

	validateJobStructure(job, &result)

	return result
}

func validateJobStructure(job map[string]interface{}, result *ValidationResult) {
	gen, hasGen := job["generate"]
	if !hasGen {
		result.Errors = append(result.Errors, "Missing required 'generate' section")
		return
	}

	genMap, ok := gen.(map[string]interface{})
	if !ok {
		result.Errors = append(result.Errors, "'generate' section must be an object")
		return
	}

	if _, hasName := genMap["name"]; !hasName {
		result.Warnings = append(result.Warnings, "'generate' section missing 'name' field")
	}

	request, hasRequest := genMap["request"]
	if !hasRequest {
		result.Errors = append(result.Errors, "'generate' section missing required 'request' field")
		return
	}

	if requestMap, ok := request.(map[string]interface{}); ok {
		validateRequestSection(requestMap, result, "generate.request")
	} else {
		result.Errors = append(result.Errors, "'generate.request' must be an object")
	}

	if response, hasResponse := genMap["response"]; hasResponse {
		if responseMap, ok := response.(map[string]interface{}); ok {
			validateResponseSection(responseMap, result, "generate.response")
		} else {
			result.Errors = append(result.Errors, "'generate.response' must be an object")
		}
	}

	if output, hasOutput := genMap["output"]; hasOutput {
		if _, ok := output.(string); !ok {
			result.Errors = append(result.Errors, "'generate.output' must be a string path")
		}
	}
}

func validateRequestSection(request map[string]interface{}, result *ValidationResult, prefix string) {
	if _, hasURL := request["url"]; !hasURL {
		result.Errors = append(result.Errors, fmt.Sprintf("'%s' missing required 'url' field", prefix))
	}

	if _, hasPrompt := request["prompt"]; !hasPrompt {
		result.Errors = append(result.Errors, fmt.Sprintf("'%s' missing required 'prompt' field", prefix))
	}

	validateNameValueList(request, "headers", result, prefix)
	validateNameValueList(request, "queries", result, prefix)

	if params, hasParams := request["params"]; hasParams {
		if _, ok := params.(map[string]interface{}); !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("'%s.params' must be an object", prefix))
		}
	}
}

func validateNameValueList(request map[string]interface{}, key string, result *ValidationResult, prefix string) {
	list, has := request[key]
	if !has {
		return
	}
	items, ok := list.([]interface{})
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("'%s.%s' must be an array", prefix, key))
		return
	}
	for i, item := range items {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("'%s.%s[%d]' must be an object with 'name' and 'value' fields", prefix, key, i))
			continue
		}
		if _, hasName := itemMap["name"]; !hasName {
			result.Errors = append(result.Errors, fmt.Sprintf("'%s.%s[%d]' missing 'name' field", prefix, key, i))
		}
		if _, hasValue := itemMap["value"]; !hasValue {
			result.Errors = append(result.Errors, fmt.Sprintf("'%s.%s[%d]' missing 'value' field", prefix, key, i))
		}
	}
}

func validateResponseSection(response map[string]interface{}, result *ValidationResult, prefix string) {
	if resultCode, hasResultCode := response["result_code"]; hasResultCode {
		if resultCodeList, ok := resultCode.([]interface{}); ok {
			for i, code := range resultCodeList {
				if _, ok := code.(string); !ok {
					if _, ok := code.(int); !ok {
						result.Errors = append(result.Errors, fmt.Sprintf("'%s.result_code[%d]' must be a string or number", prefix, i))
					}
				}
			}
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("'%s.result_code' must be an array", prefix))
		}
	}

	for _, key := range []string{"image_from", "error_from"} {
		if val, has := response[key]; has {
			if _, ok := val.(string); !ok {
				result.Errors = append(result.Errors, fmt.Sprintf("'%s.%s' must be a string path", prefix, key))
			}
		}
	}
}

func printValidationResults(results *ValidationResults) {
	fmt.Println()

	for _, result := range results.Results {
		if len(result.Errors) > 0 || len(result.Warnings) > 0 {
			fmt.Printf("📄 %s:\n", result.FileName)

			for _, err := range result.Errors {
				fmt.Printf("  ❌ Error: %s\n", err)
			}

			for _, warning := range result.Warnings {
				fmt.Printf("  ⚠️  Warning: %s\n", warning)
			}

			fmt.Println()
		} else {
			fmt.Printf("✅ %s: Valid\n", result.FileName)
		}
	}

	totalFiles := len(results.Results)
	errorFiles := 0
	warningFiles := 0
	validFiles := 0

	for _, result := range results.Results {
		if len(result.Errors) > 0 {
			errorFiles++
		} else if len(result.Warnings) > 0 {
			warningFiles++
		} else {
			validFiles++
		}
	}

	fmt.Printf("\n📊 Validation Summary:\n")
	fmt.Printf("  Total files: %d\n", totalFiles)
	fmt.Printf("  ✅ Valid files: %d\n", validFiles)
	fmt.Printf("  ⚠️  Files with warnings: %d\n", warningFiles)
	fmt.Printf("  ❌ Files with errors: %d\n", errorFiles)
}
