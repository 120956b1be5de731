package modelstore

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoCurrentModel 当前模型目录不存在
	ErrNoCurrentModel = errors.New("no current model")
	// ErrBackupNotFound 指定版本的备份不存在
	ErrBackupNotFound = errors.New("backup not found")
)

// backupPrefix 备份目录名前缀，完整目录名为 model_<version>
const backupPrefix = "model_"

// Store 模型目录管理器
// 目录布局:
//
//	<base>/current/            当前对外服务的模型
//	<base>/backups/model_<v>/  历史备份
//	<base>/training_<v>/       训练中的暂存目录
type Store struct {
	baseDir string
}

// NewStore 创建模型目录管理器
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// CurrentDir 当前模型目录路径
func (s *Store) CurrentDir() string {
	return filepath.Join(s.baseDir, "current")
}

// BackupsDir 备份根目录路径
func (s *Store) BackupsDir() string {
	return filepath.Join(s.baseDir, "backups")
}

// TrainingDir 指定版本的训练暂存目录路径
func (s *Store) TrainingDir(version string) string {
	return filepath.Join(s.baseDir, "training_"+version)
}

// backupDir 指定版本的备份目录路径
func (s *Store) backupDir(version string) string {
	return filepath.Join(s.BackupsDir(), backupPrefix+version)
}

// HasCurrent 判断当前模型是否存在
func (s *Store) HasCurrent() bool {
	info, err := os.Stat(s.CurrentDir())
	return err == nil && info.IsDir()
}

// Backup 将当前模型完整复制到 backups/model_<version>
// 当前模型不存在时返回 ErrNoCurrentModel
func (s *Store) Backup(version string) error {
	if !s.HasCurrent() {
		return ErrNoCurrentModel
	}

	dst := s.backupDir(version)
	if err := os.MkdirAll(s.BackupsDir(), 0755); err != nil {
		return fmt.Errorf("创建备份目录失败: %w", err)
	}

	if err := copyDir(s.CurrentDir(), dst); err != nil {
		// 留下半成品会污染备份列表，先清掉
		os.RemoveAll(dst)
		return fmt.Errorf("备份模型 %s 失败: %w", version, err)
	}

	log.Printf("✅ 模型已备份: %s", dst)
	return nil
}

// Restore 用指定版本的备份覆盖当前模型
func (s *Store) Restore(version string) error {
	src := s.backupDir(version)
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return ErrBackupNotFound
	}

	if err := os.RemoveAll(s.CurrentDir()); err != nil {
		return fmt.Errorf("清理当前模型失败: %w", err)
	}

	if err := copyDir(src, s.CurrentDir()); err != nil {
		return fmt.Errorf("恢复模型 %s 失败: %w", version, err)
	}

	log.Printf("🔄 模型已恢复到版本: %s", version)
	return nil
}

// Promote 将训练暂存目录切换为当前模型
// 先把旧 current 挪到临时名再改名新目录，保证切换瞬间完成
func (s *Store) Promote(stagingDir string) error {
	if info, err := os.Stat(stagingDir); err != nil || !info.IsDir() {
		return fmt.Errorf("暂存目录不存在: %s", stagingDir)
	}

	current := s.CurrentDir()
	old := current + ".old"

	if s.HasCurrent() {
		if err := os.Rename(current, old); err != nil {
			return fmt.Errorf("移出旧模型失败: %w", err)
		}
	}

	if err := os.Rename(stagingDir, current); err != nil {
		// 切换失败，把旧模型放回去
		if _, statErr := os.Stat(old); statErr == nil {
			os.Rename(old, current)
		}
		return fmt.Errorf("切换当前模型失败: %w", err)
	}

	os.RemoveAll(old)

	log.Printf("✅ 模型已晋升为 current: %s", stagingDir)
	return nil
}

// ListBackups 列出所有备份版本，按版本号倒序（新在前）
func (s *Store) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.BackupsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取备份目录失败: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), backupPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			Version:   strings.TrimPrefix(entry.Name(), backupPrefix),
			Path:      filepath.Join(s.BackupsDir(), entry.Name()),
			SizeBytes: dirSize(filepath.Join(s.BackupsDir(), entry.Name())),
			CreatedAt: info.ModTime(),
		})
	}

	// 版本号是时间戳格式，字符串倒序即时间倒序
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Version > backups[j].Version
	})

	return backups, nil
}

// Prune 只保留最新的 keep 个备份，返回删除数量
func (s *Store) Prune(keep int) (int, error) {
	backups, err := s.ListBackups()
	if err != nil {
		return 0, err
	}

	if len(backups) <= keep {
		return 0, nil
	}

	deleted := 0
	for _, b := range backups[keep:] {
		if err := os.RemoveAll(b.Path); err != nil {
			return deleted, fmt.Errorf("删除备份 %s 失败: %w", b.Version, err)
		}
		deleted++
	}

	if deleted > 0 {
		log.Printf("🧹 已清理 %d 个旧备份，保留 %d 个", deleted, keep)
	}

	return deleted, nil
}

// copyDir 递归复制目录
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}

		return copyFile(path, target, info.Mode())
	})
}

// copyFile 复制单个文件
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// dirSize 统计目录总字节数，出错时返回已累计值
func dirSize(dir string) int64 {
	var total int64
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}
