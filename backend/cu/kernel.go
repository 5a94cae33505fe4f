//go:build cuda

package cu

// ptxGemm is a naive one-thread-per-element sgemm. Strides are resolved on
// the host so a single kernel covers all transpose combinations:
//
//	extern "C" __global__ void gemm(const float *a, const float *b, float *c,
//	    unsigned m, unsigned n, unsigned k,
//	    unsigned sai, unsigned sap, unsigned sbp, unsigned sbj,
//	    float alpha, float beta)
//	{
//	    unsigned j = blockIdx.x * blockDim.x + threadIdx.x;
//	    unsigned i = blockIdx.y * blockDim.y + threadIdx.y;
//	    if (i >= m || j >= n) return;
//	    float sum = 0;
//	    for (unsigned p = 0; p < k; p++)
//	        sum += a[i*sai + p*sap] * b[p*sbp + j*sbj];
//	    c[i*n + j] = alpha*sum + beta*c[i*n + j];
//	}
const ptxGemm = `
.version 6.0
.target sm_30
.address_size 64

.visible .entry gemm(
	.param .u64 pa,
	.param .u64 pb,
	.param .u64 pc,
	.param .u32 pm,
	.param .u32 pn,
	.param .u32 pk,
	.param .u32 psai,
	.param .u32 psap,
	.param .u32 psbp,
	.param .u32 psbj,
	.param .f32 palpha,
	.param .f32 pbeta
)
{
	.reg .pred %p<3>;
	.reg .b32 %r<20>;
	.reg .f32 %f<8>;
	.reg .b64 %rd<12>;

	ld.param.u64 %rd1, [pa];
	ld.param.u64 %rd2, [pb];
	ld.param.u64 %rd3, [pc];
	ld.param.u32 %r1, [pm];
	ld.param.u32 %r2, [pn];
	ld.param.u32 %r3, [pk];
	ld.param.u32 %r4, [psai];
	ld.param.u32 %r5, [psap];
	ld.param.u32 %r6, [psbp];
	ld.param.u32 %r7, [psbj];
	ld.param.f32 %f1, [palpha];
	ld.param.f32 %f2, [pbeta];
	cvta.to.global.u64 %rd1, %rd1;
	cvta.to.global.u64 %rd2, %rd2;
	cvta.to.global.u64 %rd3, %rd3;

	mov.u32 %r8, %ctaid.x;
	mov.u32 %r9, %ntid.x;
	mov.u32 %r10, %tid.x;
	mad.lo.s32 %r11, %r8, %r9, %r10;
	mov.u32 %r8, %ctaid.y;
	mov.u32 %r9, %ntid.y;
	mov.u32 %r10, %tid.y;
	mad.lo.s32 %r12, %r8, %r9, %r10;
	setp.ge.u32 %p1, %r12, %r1;
	setp.ge.u32 %p2, %r11, %r2;
	or.pred %p1, %p1, %p2;
	@%p1 bra DONE;

	mul.lo.s32 %r13, %r12, %r4;
	mul.lo.s32 %r14, %r11, %r7;
	mov.f32 %f3, 0f00000000;
	mov.u32 %r15, 0;
LOOP:
	setp.ge.u32 %p2, %r15, %r3;
	@%p2 bra STORE;
	mul.wide.u32 %rd4, %r13, 4;
	add.s64 %rd5, %rd1, %rd4;
	ld.global.f32 %f4, [%rd5];
	mul.wide.u32 %rd6, %r14, 4;
	add.s64 %rd7, %rd2, %rd6;
	ld.global.f32 %f5, [%rd7];
	fma.rn.f32 %f3, %f4, %f5, %f3;
	add.s32 %r13, %r13, %r5;
	add.s32 %r14, %r14, %r6;
	add.s32 %r15, %r15, 1;
	bra LOOP;
STORE:
	mad.lo.s32 %r16, %r12, %r2, %r11;
	mul.wide.u32 %rd8, %r16, 4;
	add.s64 %rd9, %rd3, %rd8;
	ld.global.f32 %f6, [%rd9];
	mul.f32 %f6, %f6, %f2;
	fma.rn.f32 %f7, %f3, %f1, %f6;
	st.global.f32 [%rd9], %f7;
DONE:
	ret;
}
`
