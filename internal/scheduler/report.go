package scheduler

import (
	"fmt"
	"math"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

const (
	costEpsilon          = 1e-6
	maxInfeasibleReasons = 20
)

// verifyConsistency 在汇总前做最后一道检查：
// 用导出的排班重建一个全新矩阵，其代价必须与增量维护的代价一致。
// 不一致说明搜索过程中的缓存更新出了问题，这样的结果不能交付。
func verifyConsistency(m *ConstraintModel, r *roster) error {
	rebuilt, err := rosterFromAssignments(m, r.assignments())
	if err != nil {
		return err
	}
	if math.Abs(rebuilt.cost()-r.cost()) > costEpsilon {
		return fmt.Errorf("%w: 增量维护的代价 %.6f 与重建后的代价 %.6f 不一致", ErrInternalInconsistency, r.cost(), rebuilt.cost())
	}
	return nil
}

// infeasibleReasons 从校验报告中提取无可行解的原因。
// 校验报告按槽位缺口在前、员工违反在后排列，这里保持同样的顺序，
// 数量过多时截断并注明剩余条数。
func infeasibleReasons(validation *domain.ValidatorReport) []string {
	reasons := make([]string, 0, len(validation.Violations))
	for _, v := range validation.Violations {
		if len(reasons) == maxInfeasibleReasons {
			reasons = append(reasons, fmt.Sprintf("另有 %d 处硬约束违反未列出", len(validation.Violations)-maxInfeasibleReasons))
			break
		}
		reasons = append(reasons, v.Message)
	}
	return reasons
}
